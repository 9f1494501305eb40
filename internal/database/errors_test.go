package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/safar/farmmarket/internal/backend"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"too many connections", &pq.Error{Code: "53300"}, ErrorClassTransient},
		{"connection failure", &pq.Error{Code: "08006"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"syntax error", &pq.Error{Code: "42601"}, ErrorClassPermanent},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrorClassTransient},
		{"sqlite locked", sqlite3.Error{Code: sqlite3.ErrLocked}, ErrorClassTransient},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, ErrorClassPermanent},
		{"bad conn", driver.ErrBadConn, ErrorClassTransient},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), ErrorClassTransient},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"other", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestWrapErrorMarksUnavailable(t *testing.T) {
	err := wrapError("query offers", &pq.Error{Code: "57P01"})
	assert.ErrorIs(t, err, backend.ErrUnavailable)
	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr)

	err = wrapError("query offers", &pq.Error{Code: "42601"})
	assert.NotErrorIs(t, err, backend.ErrUnavailable)
	assert.Contains(t, err.Error(), "query offers")
}
