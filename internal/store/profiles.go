package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/models"
)

type Profiles struct {
	docs    backend.Documents
	objects backend.Objects
}

func NewProfiles(docs backend.Documents, objects backend.Objects) *Profiles {
	return &Profiles{docs: docs, objects: objects}
}

// Upsert merges profile into the stored record. Empty strings and nil
// pointers count as absent and leave the stored value alone. A profile that
// does not exist yet needs a name and a role.
func (s *Profiles) Upsert(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.ID == "" {
		return nil, invalid("id", "is required")
	}
	if profile.Role != "" && !profile.Role.Valid() {
		return nil, invalid("role", "must be farmer or buyer")
	}

	_, err := s.Get(ctx, profile.ID)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	fields := map[string]interface{}{"id": profile.ID}
	if name := strings.TrimSpace(profile.Name); name != "" {
		fields["name"] = name
	}
	if profile.Phone != "" {
		fields["phone"] = profile.Phone
	}
	if profile.Role != "" {
		fields["role"] = profile.Role
	}
	if profile.LocationLabel != nil {
		fields["locationLabel"] = *profile.LocationLabel
	}
	if profile.AvatarRef != nil {
		fields["avatarRef"] = *profile.AvatarRef
	}

	if !exists {
		if _, ok := fields["name"]; !ok {
			return nil, invalid("name", "is required")
		}
		if _, ok := fields["role"]; !ok {
			return nil, invalid("role", "is required")
		}
		if _, ok := fields["phone"]; !ok {
			fields["phone"] = ""
		}
		fields["createdAt"] = models.Now()
	}

	if err := s.docs.Merge(ctx, models.CollectionUsers, profile.ID, fields); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return s.Get(ctx, profile.ID)
}

func (s *Profiles) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	doc, err := s.docs.Get(ctx, models.CollectionUsers, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var profile models.UserProfile
	if err := doc.Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetAvatar uploads users/{id}.{ext} and stores its URL as avatarRef.
func (s *Profiles) SetAvatar(ctx context.Context, id, ext, contentType string, body io.Reader) (string, error) {
	path, err := objectPath(models.CollectionUsers, id, ext)
	if err != nil {
		return "", err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	url, err := s.objects.Put(ctx, path, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	if err := s.docs.Update(ctx, models.CollectionUsers, id, map[string]interface{}{"avatarRef": url}); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return url, nil
}
