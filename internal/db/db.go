// Package db keeps completed analysis runs in SQLite so earlier summaries
// can be listed, compared and pruned without re-reading device logs.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// DB is the run store. Each analysis run is one row in runs; its series,
// contributions, shares and failures hang off that row and go with it.
type DB struct {
	*sql.DB
	path string
}

// runStorePragmas are applied to every connection. foreign_keys must be on
// or deleting a run leaves its series behind. busy_timeout lets the CLI
// prune while the dashboard is reading.
var runStorePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
	"PRAGMA cache_size=-16000",
	"PRAGMA temp_store=MEMORY",
}

// New opens the run store at path, creating the file and its parent
// directories on first use, and brings the schema up to date.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create run store directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	// Pragmas are per connection, and SaveSummary writes a run in one
	// transaction, so everything shares a single handle.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to reach run store %s: %w", path, err)
	}

	db := &DB{DB: sqlDB, path: path}
	for _, step := range []struct {
		what string
		fn   func() error
	}{
		{"configure", db.configure},
		{"migrate", db.migrate},
	} {
		if err := step.fn(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to %s run store: %w", step.what, err)
		}
	}
	return db, nil
}

// Path returns the run store file.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) configure() error {
	for _, pragma := range runStorePragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Close folds the WAL back into the store file and closes it.
func (db *DB) Close() error {
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum shrinks the file after PruneRuns or DeleteRun has dropped runs.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
