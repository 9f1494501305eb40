package database

import (
	"testing"

	"github.com/safar/farmmarket/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	postgres, err := DialectFor(config.DriverPostgres)
	require.NoError(t, err)

	up, err := MigrationFiles(postgres, Up)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/postgres/0001_documents.up.sql",
		"migrations/postgres/0002_change_notify.up.sql",
	}, up)

	down, err := MigrationFiles(postgres, Down)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/postgres/0002_change_notify.down.sql",
		"migrations/postgres/0001_documents.down.sql",
	}, down)

	sqlite, err := DialectFor(config.DriverSQLite)
	require.NoError(t, err)
	up, err = MigrationFiles(sqlite, Up)
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations/sqlite3/0001_documents.up.sql"}, up)

	_, err = MigrationFiles(sqlite, Direction("sideways"))
	assert.Error(t, err)

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}
