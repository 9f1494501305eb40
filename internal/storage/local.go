// Package storage holds the object storage adapters for listing images and
// profile avatars.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/safar/farmmarket/internal/backend"
)

// Local keeps objects under a directory and serves them from BaseURL.
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Put(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	target, err := l.resolve(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create object %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write object %s: %w", path, err)
	}

	return l.BaseURL + "/" + path, nil
}

func (l *Local) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, l.BaseURL+"/") {
		return fmt.Errorf("%w: %s is not served from %s", backend.ErrObjectNotFound, url, l.BaseURL)
	}

	target, err := l.resolve(strings.TrimPrefix(url, l.BaseURL+"/"))
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return backend.ErrObjectNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("empty object path")
	}
	return filepath.Join(l.Dir, clean), nil
}
