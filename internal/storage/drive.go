package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/safar/farmmarket/internal/backend"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Drive stores objects as files in a Google Drive folder shared with a
// service account. The object path becomes the file name and the public URL
// is the file's direct download link.
type Drive struct {
	service  *drive.Service
	folderID string
}

func NewDrive(ctx context.Context, credentialsFile, folderID string) (*Drive, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Drive{service: service, folderID: folderID}, nil
}

func (d *Drive) Put(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	// Re-uploading a listing image replaces the previous file.
	if existing, err := d.findByName(ctx, path); err == nil {
		if err := d.service.Files.Delete(existing).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("replace drive file %s: %w", path, err)
		}
	}

	file := &drive.File{
		Name:     path,
		MimeType: contentType,
	}
	if d.folderID != "" {
		file.Parents = []string{d.folderID}
	}

	created, err := d.service.Files.Create(file).
		Media(body).
		Fields("id", "webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload drive file %s: %w", path, err)
	}

	_, err = d.service.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("share drive file %s: %w", path, err)
	}

	if created.WebContentLink != "" {
		return created.WebContentLink, nil
	}
	return "https://drive.google.com/uc?export=download&id=" + created.Id, nil
}

func (d *Drive) Delete(ctx context.Context, rawURL string) error {
	id, err := driveFileID(rawURL)
	if err != nil {
		return err
	}

	if err := d.service.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete drive file %s: %w", id, err)
	}
	return nil
}

func (d *Drive) findByName(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name='%s' and trashed=false", strings.ReplaceAll(name, "'", "\\'"))
	if d.folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", d.folderID)
	}

	list, err := d.service.Files.List().Q(q).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search drive file %s: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", backend.ErrObjectNotFound
	}
	return list.Files[0].Id, nil
}

func driveFileID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse drive url: %w", err)
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}
	// https://drive.google.com/file/d/{id}/view
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "d" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: no drive file id in %s", backend.ErrObjectNotFound, rawURL)
}
