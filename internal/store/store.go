package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store persists downloaded products, satellite observations, reanalysis
// winds and calculation runs in a local sqlite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the sqlite database at path, creating it when absent.
// Run Migrate before first use.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent runs.
	db.SetMaxOpenConns(1)

	return &Store{db: db, logger: logger.With("component", "store")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
