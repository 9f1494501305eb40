package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/farmmarket/internal/backend"
	"github.com/safar/farmmarket/internal/backend/memory"
	"github.com/safar/farmmarket/internal/config"
	"github.com/safar/farmmarket/internal/database"
	"github.com/safar/farmmarket/internal/storage"
	"go.uber.org/zap"
)

// openDocuments returns the document backend named by cfg and a function
// releasing it. With postgres, writes from other processes are fed into
// live queries until ctx is done.
func openDocuments(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (backend.Documents, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory documents; data is lost on exit")
		return memory.NewDocuments(), func() {}, nil
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}

	dialect, err := database.DialectFor(cfg.Database.Driver)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	if migrate {
		if err := migrateUp(ctx, db, dialect, logger); err != nil {
			closeDB()
			return nil, nil, err
		}
	}

	docs := database.NewDocumentStore(db, dialect)
	if cfg.Database.Driver == config.DriverPostgres {
		if err := docs.ListenForChanges(ctx, cfg.Database.URL, logger); err != nil {
			closeDB()
			return nil, nil, err
		}
	}

	logger.Info("connected to database", zap.String("driver", cfg.Database.Driver))
	return docs, closeDB, nil
}

func migrateUp(ctx context.Context, db *sql.DB, dialect database.Dialect, logger *zap.Logger) error {
	ran, err := database.Migrate(ctx, db, dialect, database.Up)
	if err != nil {
		return err
	}
	for _, name := range ran {
		logger.Info("applied migration", zap.String("file", name))
	}
	return nil
}

func openObjects(ctx context.Context, cfg config.StorageConfig) (backend.Objects, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewObjects(), nil
	case config.StorageDrive:
		return storage.NewDrive(ctx, cfg.CredentialsFile, cfg.FolderID)
	case config.StorageLocal:
		return storage.NewLocal(cfg.Dir, cfg.BaseURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
