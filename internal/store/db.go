package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deeprecall/replica/internal/config"
	"github.com/deeprecall/replica/internal/logger"
	"github.com/deeprecall/replica/migrations"
)

// DB wraps the SQLite connection shared by all entity-type repositories.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// Migrate applies the embedded engine migrations (fixed tables only).
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// NewConnectSQLite opens (creating if necessary) the local SQLite database
// named by cfg.DSN and verifies the connection with a ping.
func NewConnectSQLite(ctx context.Context, cfg config.LocalDB, log *logger.Logger) (*DB, error) {
	// db will be in file
	if err := createLocalDBFileIfNotExists(cfg.DSN); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error creating database file")
		return nil, fmt.Errorf("error creating database file")
	}

	conn, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database")
		return nil, fmt.Errorf("error opening connection to DB")
	}

	// ping database
	err = conn.PingContext(ctx)
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error connecting database (ping)")
		return nil, err
	}
	log.Debug().Str("func", "NewConnectSQLite").Msg("connected to database successfully")

	// construct a DB struct
	db := &DB{
		DB:     conn,
		logger: log,
	}

	return db, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		// if not found - create
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	// file already exists
	return nil
}
