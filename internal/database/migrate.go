package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrationFS embed.FS

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationFiles lists the scripts for dialect in the order they run.
func MigrationFiles(dialect Dialect, direction Direction) ([]string, error) {
	if direction != Up && direction != Down {
		return nil, fmt.Errorf("direction must be 'up' or 'down'")
	}

	dir := path.Join("migrations", dialect.Name())
	files, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), fmt.Sprintf(".%s.sql", direction)) {
			migrationFiles = append(migrationFiles, path.Join(dir, file.Name()))
		}
	}

	sort.Strings(migrationFiles)
	if direction == Down {
		for i, j := 0, len(migrationFiles)-1; i < j; i, j = i+1, j-1 {
			migrationFiles[i], migrationFiles[j] = migrationFiles[j], migrationFiles[i]
		}
	}

	return migrationFiles, nil
}

// Migrate runs every migration script for direction, each in its own
// transaction, and returns the names it ran.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, direction Direction) ([]string, error) {
	migrationFiles, err := MigrationFiles(dialect, direction)
	if err != nil {
		return nil, err
	}

	for _, filename := range migrationFiles {
		content, err := fs.ReadFile(migrationFS, filename)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", filename, err)
		}

		err = WithTransaction(ctx, db, DefaultTxOptions(), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, string(content))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return migrationFiles, nil
}
