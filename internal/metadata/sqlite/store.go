// Package sqlite is the SQLite-backed implementation of the metadata
// store, using the pure-Go ncruces/go-sqlite3 driver so the binary needs
// no cgo toolchain to build or run. Grounded on bd's
// internal/storage/ephemeral/store.go connection pattern.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rit1708/waitingroom/internal/metadata"
	"github.com/rit1708/waitingroom/internal/metadata/sqlite/migrations"
)

// store is the concrete metadata.Store backed by a single-writer SQLite
// connection pool.
type store struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at path, applies
// pending migrations, and returns a ready metadata.Store. A single open
// connection is enforced: SQLite's writer lock makes additional
// connections pure contention, not concurrency, for this workload.
func New(path string) (metadata.Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *store) Close() error {
	return s.db.Close()
}
