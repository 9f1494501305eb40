package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/safar/farmmarket/internal/config"
)

// Dialect holds the SQL that differs between the document backends.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	// JSONArg wraps a placeholder bound to an encoded JSON object.
	JSONArg(placeholder string) string
	FieldText(field string) string
	FieldNumber(field string) string
	In(expr string, values []string, args *argList) string
	// MergeJSON merges the top-level keys of patch into base.
	MergeJSON(base, patch string) string
	TimeArg(t time.Time) interface{}
	ParseTime(v interface{}) (time.Time, error)
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return postgresDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

type argList struct {
	dialect Dialect
	values  []interface{}
}

func (a *argList) add(v interface{}) string {
	a.values = append(a.values, v)
	return a.dialect.Placeholder(len(a.values))
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return config.DriverPostgres }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) JSONArg(placeholder string) string { return placeholder + "::jsonb" }

func (postgresDialect) FieldText(field string) string {
	return "data->>'" + field + "'"
}

func (postgresDialect) FieldNumber(field string) string {
	return "(data->>'" + field + "')::numeric"
}

func (postgresDialect) In(expr string, values []string, args *argList) string {
	return expr + " = ANY(" + args.add(pq.Array(values)) + ")"
}

func (postgresDialect) MergeJSON(base, patch string) string {
	return base + " || " + patch
}

func (postgresDialect) TimeArg(t time.Time) interface{} { return t.UTC() }

func (postgresDialect) ParseTime(v interface{}) (time.Time, error) {
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
	}
	return t.UTC(), nil
}

// sqliteDialect keeps created_at as integer nanoseconds so ordering does not
// depend on the driver's text rendering of times.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return config.DriverSQLite }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) JSONArg(placeholder string) string { return "json(" + placeholder + ")" }

func (sqliteDialect) FieldText(field string) string {
	return "json_extract(data, '$." + field + "')"
}

func (sqliteDialect) FieldNumber(field string) string {
	return "CAST(json_extract(data, '$." + field + "') AS REAL)"
}

func (sqliteDialect) In(expr string, values []string, args *argList) string {
	if len(values) == 0 {
		return "0"
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = args.add(v)
	}
	return expr + " IN (" + strings.Join(placeholders, ", ") + ")"
}

func (sqliteDialect) MergeJSON(base, patch string) string {
	return "json_patch(" + base + ", " + patch + ")"
}

func (sqliteDialect) TimeArg(t time.Time) interface{} { return t.UnixNano() }

func (sqliteDialect) ParseTime(v interface{}) (time.Time, error) {
	n, ok := v.(int64)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected created_at type %T", v)
	}
	return time.Unix(0, n).UTC(), nil
}
