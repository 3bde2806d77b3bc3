package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 holds completed sweeps: one row per run plus one row per
// finalized series, with the bin counters serialized as a JSON array.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    config TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS series (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    label TEXT NOT NULL,
    color TEXT NOT NULL,
    value REAL NOT NULL,

    lo REAL NOT NULL,
    hi REAL NOT NULL,
    bins INTEGER NOT NULL,
    counts TEXT NOT NULL,
    underflow INTEGER NOT NULL DEFAULT 0,
    overflow INTEGER NOT NULL DEFAULT 0,

    trials INTEGER NOT NULL DEFAULT 0,
    failures INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_series_label ON series(label);

CREATE TABLE IF NOT EXISTS schema_info (
    version INTEGER NOT NULL
);
`

// InitSchema creates the tables if they do not exist and records the
// schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_info`).Scan(&count); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}
