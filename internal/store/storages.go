package store

import (
	"context"
	"fmt"

	"github.com/deeprecall/replica/internal/config"
	"github.com/deeprecall/replica/internal/logger"
)

// Storages groups the engine's storage repositories into a single value that
// can be passed around the service layer. Currently it holds only
// [LocalStore]; additional repositories can be added here as the feature set
// grows.
type Storages struct {
	// Local is the SQLite-backed store holding the synced mirror and
	// pending log for every registered entity type.
	Local LocalStore
}

// NewStorages initialises the storage layer using the supplied configuration
// and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to a fresh
//     [LocalStore].
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Local: NewLocalRepository(db, logger),
	}, nil
}
