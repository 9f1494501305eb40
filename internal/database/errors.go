package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/safar/farmmarket/internal/backend"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03", "57P01", "57P03", "53300":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
		if pqErr.Code.Class() == "08" {
			return ErrorClassTransient
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return ErrorClassTransient
		}
		return ErrorClassPermanent
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return ErrorClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassTransient
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// wrapError annotates a driver error with the operation that failed and,
// when the failure is one a caller could reasonably try again later, with
// backend.ErrUnavailable.
func wrapError(op string, err error) error {
	if IsRetryable(err) {
		return fmt.Errorf("%s: %w: %w", op, backend.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
