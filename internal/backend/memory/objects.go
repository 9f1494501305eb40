package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/safar/farmmarket/internal/backend"
)

const objectURLPrefix = "memory://objects/"

type Object struct {
	ContentType string
	Body        []byte
}

type Objects struct {
	mu        sync.Mutex
	objects   map[string]Object
	deleteErr error
}

func NewObjects() *Objects {
	return &Objects{objects: make(map[string]Object)}
}

// FailDeletes makes Delete return err until called again with nil.
func (o *Objects) FailDeletes(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleteErr = err
}

func (o *Objects) Put(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", path, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[path] = Object{ContentType: contentType, Body: data}
	return objectURLPrefix + path, nil
}

func (o *Objects) Delete(ctx context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.deleteErr != nil {
		return o.deleteErr
	}
	path := strings.TrimPrefix(url, objectURLPrefix)
	if _, ok := o.objects[path]; !ok {
		return backend.ErrObjectNotFound
	}
	delete(o.objects, path)
	return nil
}

func (o *Objects) Lookup(path string) (Object, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[path]
	return obj, ok
}
