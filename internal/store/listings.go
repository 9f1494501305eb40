package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Listings struct {
	docs      backend.Documents
	objects   backend.Objects
	logger    *zap.Logger
	resultCap int
}

func NewListings(docs backend.Documents, objects backend.Objects, logger *zap.Logger, resultCap int) *Listings {
	return &Listings{docs: docs, objects: objects, logger: logger, resultCap: resultCap}
}

// ListingUpdate carries the fields an owner edits; nil fields are left as
// they are.
type ListingUpdate struct {
	CropName      *string               `json:"cropName,omitempty"`
	Quantity      *decimal.Decimal      `json:"quantity,omitempty"`
	Unit          *string               `json:"unit,omitempty"`
	PricePerUnit  *decimal.Decimal      `json:"pricePerUnit,omitempty"`
	ImageRef      *string               `json:"imageRef,omitempty"`
	LocationLabel *string               `json:"locationLabel,omitempty"`
	Status        *models.ListingStatus `json:"status,omitempty"`
}

type ListingFilter struct {
	Crop     string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

type ListingsSnapshot struct {
	Listings []models.Listing
	Err      error
}

func validateListing(l *models.Listing) error {
	switch {
	case l.OwnerID == "":
		return invalid("ownerId", "is required")
	case strings.TrimSpace(l.CropName) == "":
		return invalid("cropName", "is required")
	case !l.Quantity.IsPositive():
		return invalid("quantity", "must be greater than zero")
	case strings.TrimSpace(l.Unit) == "":
		return invalid("unit", "is required")
	case !l.PricePerUnit.IsPositive():
		return invalid("pricePerUnit", "must be greater than zero")
	case strings.TrimSpace(l.LocationLabel) == "":
		return invalid("locationLabel", "is required")
	}
	return nil
}

func (s *Listings) Create(ctx context.Context, listing models.Listing) (*models.Listing, error) {
	if err := validateListing(&listing); err != nil {
		return nil, err
	}

	listing.ID = uuid.NewString()
	listing.Status = models.ListingStatusOpen
	listing.CreatedAt = models.Now()

	doc, err := backend.NewDocument(listing.ID, listing.CreatedAt.Time, listing)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, models.CollectionListings, doc); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	return &listing, nil
}

func (s *Listings) Get(ctx context.Context, id string) (*models.Listing, error) {
	doc, err := s.docs.Get(ctx, models.CollectionListings, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	var listing models.Listing
	if err := doc.Decode(&listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *Listings) Update(ctx context.Context, id string, upd ListingUpdate) error {
	fields := make(map[string]interface{})

	if upd.CropName != nil {
		if strings.TrimSpace(*upd.CropName) == "" {
			return invalid("cropName", "is required")
		}
		fields["cropName"] = *upd.CropName
	}
	if upd.Quantity != nil {
		if !upd.Quantity.IsPositive() {
			return invalid("quantity", "must be greater than zero")
		}
		fields["quantity"] = *upd.Quantity
	}
	if upd.Unit != nil {
		if strings.TrimSpace(*upd.Unit) == "" {
			return invalid("unit", "is required")
		}
		fields["unit"] = *upd.Unit
	}
	if upd.PricePerUnit != nil {
		if !upd.PricePerUnit.IsPositive() {
			return invalid("pricePerUnit", "must be greater than zero")
		}
		fields["pricePerUnit"] = *upd.PricePerUnit
	}
	if upd.ImageRef != nil {
		fields["imageRef"] = *upd.ImageRef
	}
	if upd.LocationLabel != nil {
		if strings.TrimSpace(*upd.LocationLabel) == "" {
			return invalid("locationLabel", "is required")
		}
		fields["locationLabel"] = *upd.LocationLabel
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return invalid("status", "must be open or sold")
		}
		fields["status"] = *upd.Status
	}

	if len(fields) == 0 {
		return invalid("update", "no fields to update")
	}

	if err := s.docs.Update(ctx, models.CollectionListings, id, fields); err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

func (s *Listings) MarkSold(ctx context.Context, id string) error {
	sold := models.ListingStatusSold
	return s.Update(ctx, id, ListingUpdate{Status: &sold})
}

// Delete removes the listing and then, best effort, its image.
func (s *Listings) Delete(ctx context.Context, id string) error {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, models.CollectionListings, id); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}

	if listing.ImageRef != nil && *listing.ImageRef != "" {
		if err := s.objects.Delete(ctx, *listing.ImageRef); err != nil {
			s.logger.Warn("delete listing image",
				zap.String("listing_id", id),
				zap.String("image_ref", *listing.ImageRef),
				zap.Error(err))
		}
	}
	return nil
}

// SetImage uploads the listing image to listings/{id}.{ext} and stores its
// URL as the listing's imageRef.
func (s *Listings) SetImage(ctx context.Context, id, ext, contentType string, body io.Reader) (string, error) {
	path, err := objectPath(models.CollectionListings, id, ext)
	if err != nil {
		return "", err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	url, err := s.objects.Put(ctx, path, contentType, body)
	if err != nil {
		return "", fmt.Errorf("upload listing image: %w", err)
	}

	if err := s.Update(ctx, id, ListingUpdate{ImageRef: &url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *Listings) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	docs, err := s.docs.Query(ctx, backend.Query{
		Collection: models.CollectionListings,
		Filters:    []backend.Filter{backend.Where("ownerId", backend.OpEqual, ownerID)},
		Limit:      s.resultCap,
	})
	if err != nil {
		return nil, fmt.Errorf("list listings by owner: %w", err)
	}
	return decodeListings(docs)
}

func (s *Listings) ListOpen(ctx context.Context, filter ListingFilter) ([]models.Listing, error) {
	docs, err := s.docs.Query(ctx, s.openQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("list open listings: %w", err)
	}

	listings, err := decodeListings(docs)
	if err != nil {
		return nil, err
	}
	return s.applyCrop(listings, filter.Crop), nil
}

// WatchOpen delivers the open listings matching filter now and after every
// listing write.
func (s *Listings) WatchOpen(ctx context.Context, filter ListingFilter) (<-chan ListingsSnapshot, error) {
	snapshots, err := s.docs.Subscribe(ctx, s.openQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("watch open listings: %w", err)
	}

	out := make(chan ListingsSnapshot, 1)
	go func() {
		defer close(out)
		for snap := range snapshots {
			result := ListingsSnapshot{Err: snap.Err}
			if snap.Err == nil {
				result.Listings, result.Err = decodeListings(snap.Documents)
				result.Listings = s.applyCrop(result.Listings, filter.Crop)
			}

			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ownedIDs returns the ids of every listing owned by ownerID, uncapped.
func (s *Listings) ownedIDs(ctx context.Context, ownerID string) ([]string, error) {
	docs, err := s.docs.Query(ctx, ownedListingsQuery(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list listing ids by owner: %w", err)
	}
	return documentIDs(docs), nil
}

func ownedListingsQuery(ownerID string) backend.Query {
	return backend.Query{
		Collection: models.CollectionListings,
		Filters:    []backend.Filter{backend.Where("ownerId", backend.OpEqual, ownerID)},
	}
}

func (s *Listings) openQuery(filter ListingFilter) backend.Query {
	q := backend.Query{
		Collection: models.CollectionListings,
		Filters:    []backend.Filter{backend.Where("status", backend.OpEqual, models.ListingStatusOpen)},
		Limit:      s.resultCap,
	}
	if filter.MinPrice != nil {
		q.Filters = append(q.Filters, backend.Where("pricePerUnit", backend.OpGreaterOrEqual, *filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		q.Filters = append(q.Filters, backend.Where("pricePerUnit", backend.OpLessOrEqual, *filter.MaxPrice))
	}
	if filter.Crop != "" {
		// The crop predicate runs after the query, so the cap is applied
		// to the filtered result instead.
		q.Limit = 0
	}
	return q
}

func (s *Listings) applyCrop(listings []models.Listing, crop string) []models.Listing {
	crop = strings.ToLower(strings.TrimSpace(crop))
	if crop == "" {
		return listings
	}

	matched := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.CropName), crop) {
			matched = append(matched, l)
			if s.resultCap > 0 && len(matched) == s.resultCap {
				break
			}
		}
	}
	return matched
}

func decodeListings(docs []backend.Document) ([]models.Listing, error) {
	listings := make([]models.Listing, 0, len(docs))
	for _, doc := range docs {
		var l models.Listing
		if err := doc.Decode(&l); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func documentIDs(docs []backend.Document) []string {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	return ids
}
