package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/safar/farmmarket/internal/backend"
)

// DocumentStore keeps every collection in the documents table, one JSON
// object per row.
type DocumentStore struct {
	db      *sql.DB
	dialect Dialect
	broker  *backend.Broker
}

func NewDocumentStore(db *sql.DB, dialect Dialect) *DocumentStore {
	return &DocumentStore{
		db:      db,
		dialect: dialect,
		broker:  backend.NewBroker(),
	}
}

func (s *DocumentStore) args() *argList {
	return &argList{dialect: s.dialect}
}

func (s *DocumentStore) Set(ctx context.Context, collection string, doc backend.Document) error {
	args := s.args()
	query := fmt.Sprintf(`
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = excluded.data, updated_at = excluded.updated_at`,
		args.add(collection),
		args.add(doc.ID),
		s.dialect.JSONArg(args.add(string(doc.Data))),
		args.add(s.dialect.TimeArg(doc.CreatedAt)),
		args.add(s.dialect.TimeArg(time.Now())))

	if _, err := s.db.ExecContext(ctx, query, args.values...); err != nil {
		return wrapError(fmt.Sprintf("set %s/%s", collection, doc.ID), err)
	}

	s.broker.Notify(collection)
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*backend.Document, error) {
	args := s.args()
	query := fmt.Sprintf(`
		SELECT id, data, created_at
		FROM documents
		WHERE collection = %s AND id = %s`,
		args.add(collection), args.add(id))

	doc, err := s.scanDocument(s.db.QueryRowContext(ctx, query, args.values...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, backend.ErrNotFound
		}
		return nil, wrapError(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	return doc, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode update %s/%s: %w", collection, id, err)
	}

	args := s.args()
	query := fmt.Sprintf(`
		UPDATE documents
		SET data = %s, updated_at = %s
		WHERE collection = %s AND id = %s`,
		s.dialect.MergeJSON("data", s.dialect.JSONArg(args.add(string(patch)))),
		args.add(s.dialect.TimeArg(time.Now())),
		args.add(collection),
		args.add(id))

	result, err := s.db.ExecContext(ctx, query, args.values...)
	if err != nil {
		return wrapError(fmt.Sprintf("update %s/%s", collection, id), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return backend.ErrNotFound
	}

	s.broker.Notify(collection)
	return nil
}

func (s *DocumentStore) Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode merge %s/%s: %w", collection, id, err)
	}

	now := time.Now()
	args := s.args()
	query := fmt.Sprintf(`
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = %s, updated_at = excluded.updated_at`,
		args.add(collection),
		args.add(id),
		s.dialect.JSONArg(args.add(string(patch))),
		args.add(s.dialect.TimeArg(now)),
		args.add(s.dialect.TimeArg(now)),
		s.dialect.MergeJSON("documents.data", "excluded.data"))

	if _, err := s.db.ExecContext(ctx, query, args.values...); err != nil {
		return wrapError(fmt.Sprintf("merge %s/%s", collection, id), err)
	}

	s.broker.Notify(collection)
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	args := s.args()
	query := fmt.Sprintf(`DELETE FROM documents WHERE collection = %s AND id = %s`,
		args.add(collection), args.add(id))

	if _, err := s.db.ExecContext(ctx, query, args.values...); err != nil {
		return wrapError(fmt.Sprintf("delete %s/%s", collection, id), err)
	}

	s.broker.Notify(collection)
	return nil
}

func (s *DocumentStore) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, args, err := s.buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError("query "+q.Collection, err)
	}
	defer rows.Close()

	var docs []backend.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapError("rows error", err)
	}

	return docs, nil
}

func (s *DocumentStore) Subscribe(ctx context.Context, q backend.Query) (<-chan backend.Snapshot, error) {
	return backend.Watch(ctx, s.broker, q, s.Query)
}

func (s *DocumentStore) buildQuery(q backend.Query) (string, []interface{}, error) {
	args := s.args()
	where := []string{"collection = " + args.add(q.Collection)}

	for _, f := range q.Filters {
		switch f.Op {
		case backend.OpEqual:
			where = append(where, s.dialect.FieldText(f.Field)+" = "+args.add(backend.StringValue(f.Value)))
		case backend.OpIn:
			where = append(where, s.dialect.In(s.dialect.FieldText(f.Field), f.Value.([]string), args))
		case backend.OpGreaterOrEqual, backend.OpLessOrEqual:
			n, err := backend.NumericValue(f.Value)
			if err != nil {
				return "", nil, err
			}
			where = append(where, s.dialect.FieldNumber(f.Field)+" "+string(f.Op)+" "+args.add(n.InexactFloat64()))
		}
	}

	query := `
		SELECT id, data, created_at
		FROM documents
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += "\n\t\tLIMIT " + strconv.Itoa(q.Limit)
	}

	return query, args.values, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *DocumentStore) scanDocument(row rowScanner) (*backend.Document, error) {
	var (
		doc       backend.Document
		data      []byte
		createdAt interface{}
	)
	if err := row.Scan(&doc.ID, &data, &createdAt); err != nil {
		return nil, err
	}

	t, err := s.dialect.ParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = t
	doc.Data = data
	return &doc, nil
}
