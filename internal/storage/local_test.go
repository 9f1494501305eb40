package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/safar/farmmarket/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := l.Put(ctx, "listings/l1.jpg", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/listings/l1.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "listings", "l1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.NoError(t, l.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "listings", "l1.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, l.Delete(ctx, url), backend.ErrObjectNotFound)
	assert.ErrorIs(t, l.Delete(ctx, "https://elsewhere.example/listings/l1.jpg"), backend.ErrObjectNotFound)
}

func TestLocalStaysInsideDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	l, err := NewLocal(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	_, err = l.Put(ctx, "../escape.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err), "object written outside the storage dir")
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
}
