package db

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		manifest TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL DEFAULT 'da',
		kinds TEXT NOT NULL DEFAULT '',
		split_weekday INTEGER NOT NULL DEFAULT 0,
		output_dir TEXT NOT NULL DEFAULT '',
		devices INTEGER NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		contributing INTEGER NOT NULL DEFAULT 0,
		overall_use REAL NOT NULL DEFAULT 0,
		overall_demand REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS series (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		level TEXT NOT NULL,
		span TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE(run_id, kind, level, span, name)
	);

	CREATE TABLE IF NOT EXISTS statistics (
		series_id INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
		bucket INTEGER NOT NULL,
		total REAL NOT NULL DEFAULT 0,
		mean REAL NOT NULL DEFAULT 0,
		count INTEGER NOT NULL DEFAULT 0,
		min REAL NOT NULL DEFAULT 0,
		max REAL NOT NULL DEFAULT 0,
		median REAL NOT NULL DEFAULT 0,
		PRIMARY KEY(series_id, bucket)
	);

	CREATE TABLE IF NOT EXISTS contributions (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		scope TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		device TEXT NOT NULL DEFAULT '',
		PRIMARY KEY(run_id, scope, category, device)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS shares (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		use_total REAL NOT NULL DEFAULT 0,
		use_percent REAL NOT NULL DEFAULT 0,
		demand_total REAL NOT NULL DEFAULT 0,
		demand_percent REAL NOT NULL DEFAULT 0,
		PRIMARY KEY(run_id, category)
	);

	CREATE TABLE IF NOT EXISTS failures (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		device TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_series_run_kind ON series(run_id, kind);
	`,
}

// SchemaVersion returns the number of migrations applied.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (db *DB) migrate() error {
	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(context.Background(), migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}
	return nil
}
