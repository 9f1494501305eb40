package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StorageLocal, cfg.Storage.Driver)
	assert.Equal(t, 50, cfg.Query.ResultCap)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverSQLite)
	t.Setenv("DATABASE_URL", "file:market.db")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "3")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("QUERY_RESULT_CAP", "10")
	t.Setenv("LOG_DEVELOPMENT", "true")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "file:market.db", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Query.ResultCap)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "many")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")
	t.Setenv("LOG_DEVELOPMENT", "yes please")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Log.Development)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: DriverMemory},
			Storage:  StorageConfig{Driver: StorageMemory},
			Auth:     AuthConfig{JWTSecret: "secret"},
			Query:    QueryConfig{ResultCap: 50},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown database", func(c *Config) { c.Database.Driver = "mysql" }, "DATABASE_DRIVER"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "s3" }, "STORAGE_DRIVER"},
		{"drive without credentials", func(c *Config) { c.Storage.Driver = StorageDrive }, "STORAGE_GDRIVE_CREDENTIALS_FILE"},
		{"drive with credentials", func(c *Config) {
			c.Storage.Driver = StorageDrive
			c.Storage.CredentialsFile = "sa.json"
		}, ""},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "AUTH_JWT_SECRET"},
		{"zero cap", func(c *Config) { c.Query.ResultCap = 0 }, "QUERY_RESULT_CAP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
