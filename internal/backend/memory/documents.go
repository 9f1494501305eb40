// Package memory is an in-process implementation of the backend
// capabilities. It keeps the query semantics of the SQL backend, including
// the "in" cardinality limit, so stores can be exercised without a database.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/safar/farmmarket/internal/backend"
	"github.com/shopspring/decimal"
)

type Documents struct {
	mu          sync.RWMutex
	collections map[string]map[string]backend.Document
	faults      map[string]error
	broker      *backend.Broker
}

func NewDocuments() *Documents {
	return &Documents{
		collections: make(map[string]map[string]backend.Document),
		faults:      make(map[string]error),
		broker:      backend.NewBroker(),
	}
}

// FailOn makes every op ("set", "get", "update", "merge", "delete", "query")
// on collection return err until it is cleared with a nil err.
func (d *Documents) FailOn(op, collection string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := op + ":" + collection
	if err == nil {
		delete(d.faults, key)
		return
	}
	d.faults[key] = err
}

// Listeners reports the live queries open on collection.
func (d *Documents) Listeners(collection string) int {
	return d.broker.Listeners(collection)
}

func (d *Documents) fault(op, collection string) error {
	return d.faults[op+":"+collection]
}

func (d *Documents) Set(ctx context.Context, collection string, doc backend.Document) error {
	d.mu.Lock()
	if err := d.fault("set", collection); err != nil {
		d.mu.Unlock()
		return err
	}
	if d.collections[collection] == nil {
		d.collections[collection] = make(map[string]backend.Document)
	}
	d.collections[collection][doc.ID] = copyDocument(doc)
	d.mu.Unlock()

	d.broker.Notify(collection)
	return nil
}

func (d *Documents) Get(ctx context.Context, collection, id string) (*backend.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.fault("get", collection); err != nil {
		return nil, err
	}
	doc, ok := d.collections[collection][id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	out := copyDocument(doc)
	return &out, nil
}

func (d *Documents) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return d.patch(collection, id, fields, false)
}

func (d *Documents) Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return d.patch(collection, id, fields, true)
}

func (d *Documents) patch(collection, id string, fields map[string]interface{}, upsert bool) error {
	op := "update"
	if upsert {
		op = "merge"
	}

	d.mu.Lock()
	if err := d.fault(op, collection); err != nil {
		d.mu.Unlock()
		return err
	}

	doc, ok := d.collections[collection][id]
	if !ok && !upsert {
		d.mu.Unlock()
		return backend.ErrNotFound
	}

	body := make(map[string]json.RawMessage)
	if ok {
		if err := json.Unmarshal(doc.Data, &body); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("decode document %s: %w", id, err)
		}
	} else {
		doc = backend.Document{ID: id, CreatedAt: time.Now().UTC()}
	}

	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("encode field %s: %w", k, err)
		}
		body[k] = raw
	}

	data, err := json.Marshal(body)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	doc.Data = data

	if d.collections[collection] == nil {
		d.collections[collection] = make(map[string]backend.Document)
	}
	d.collections[collection][id] = doc
	d.mu.Unlock()

	d.broker.Notify(collection)
	return nil
}

func (d *Documents) Delete(ctx context.Context, collection, id string) error {
	d.mu.Lock()
	if err := d.fault("delete", collection); err != nil {
		d.mu.Unlock()
		return err
	}
	delete(d.collections[collection], id)
	d.mu.Unlock()

	d.broker.Notify(collection)
	return nil
}

func (d *Documents) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.fault("query", q.Collection); err != nil {
		return nil, err
	}

	var docs []backend.Document
	for _, doc := range d.collections[q.Collection] {
		ok, err := matches(doc, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, copyDocument(doc))
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (d *Documents) Subscribe(ctx context.Context, q backend.Query) (<-chan backend.Snapshot, error) {
	return backend.Watch(ctx, d.broker, q, d.Query)
}

func matches(doc backend.Document, filters []backend.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Data))
	dec.UseNumber()
	var body map[string]interface{}
	if err := dec.Decode(&body); err != nil {
		return false, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}

	for _, f := range filters {
		value, present := body[f.Field]
		if !present || value == nil {
			return false, nil
		}

		switch f.Op {
		case backend.OpEqual:
			if fmt.Sprint(value) != backend.StringValue(f.Value) {
				return false, nil
			}

		case backend.OpIn:
			found := false
			for _, candidate := range f.Value.([]string) {
				if fmt.Sprint(value) == candidate {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}

		case backend.OpGreaterOrEqual, backend.OpLessOrEqual:
			got, err := decimal.NewFromString(fmt.Sprint(value))
			if err != nil {
				return false, nil
			}
			want, err := backend.NumericValue(f.Value)
			if err != nil {
				return false, err
			}
			if f.Op == backend.OpGreaterOrEqual && got.LessThan(want) {
				return false, nil
			}
			if f.Op == backend.OpLessOrEqual && got.GreaterThan(want) {
				return false, nil
			}
		}
	}
	return true, nil
}

func copyDocument(doc backend.Document) backend.Document {
	data := make(json.RawMessage, len(doc.Data))
	copy(data, doc.Data)
	return backend.Document{ID: doc.ID, CreatedAt: doc.CreatedAt, Data: data}
}
