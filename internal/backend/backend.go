// Package backend defines the capability the marketplace stores are written
// against: a document database with live queries and an object store.
// Implementations live in internal/backend/memory, internal/database and
// internal/storage.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// MaxInValues is the largest number of values an "in" filter may carry.
const MaxInValues = 10

var (
	ErrNotFound       = errors.New("document not found")
	ErrTooManyValues  = fmt.Errorf("in filter exceeds %d values", MaxInValues)
	ErrInvalidField   = errors.New("invalid field path")
	ErrUnavailable    = errors.New("backend unavailable")
	ErrObjectNotFound = errors.New("object not found")
)

type Document struct {
	ID        string
	CreatedAt time.Time
	Data      json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v interface{}) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// NewDocument encodes v as the body of a document.
func NewDocument(id string, createdAt time.Time, v interface{}) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("encode document %s: %w", id, err)
	}
	return Document{ID: id, CreatedAt: createdAt, Data: data}, nil
}

type Op string

const (
	OpEqual          Op = "=="
	OpIn             Op = "in"
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
)

type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

func Where(field string, op Op, value interface{}) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents of one collection. Results are ordered by
// creation time, newest first. A zero Limit means no limit.
type Query struct {
	Collection string
	Filters    []Filter
	Limit      int
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func ValidField(field string) bool {
	return fieldPattern.MatchString(field)
}

// Validate checks the query shape every implementation accepts.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("query: empty collection")
	}
	for _, f := range q.Filters {
		if !ValidField(f.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
		}
		switch f.Op {
		case OpEqual, OpGreaterOrEqual, OpLessOrEqual:
		case OpIn:
			values, ok := f.Value.([]string)
			if !ok {
				return fmt.Errorf("query: in filter on %s needs []string", f.Field)
			}
			if len(values) > MaxInValues {
				return ErrTooManyValues
			}
		default:
			return fmt.Errorf("query: unsupported operator %q", f.Op)
		}
	}
	return nil
}

// Snapshot is one delivery of a live query: the full current result set, or
// the error that prevented computing it.
type Snapshot struct {
	Documents []Document
	Err       error
}

type Documents interface {
	// Set writes the whole document, replacing any previous body.
	Set(ctx context.Context, collection string, doc Document) error
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Update merges fields into an existing document's top level.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Merge is Update that creates the document when it is absent.
	Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe delivers the result of q now and again after every write to
	// q.Collection until ctx is done.
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
}

type Objects interface {
	// Put stores body under path and returns its public URL.
	Put(ctx context.Context, path, contentType string, body io.Reader) (string, error)
	// Delete removes the object a previous Put returned url for.
	Delete(ctx context.Context, url string) error
}
