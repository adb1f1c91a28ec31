package repository

import (
	"context"
	"fmt"
)

const runTable = "protocol_run"

// Portable across SQLite and Postgres: timestamps are fixed-width UTC text,
// booleans are integers.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS protocol_run (
	id            TEXT PRIMARY KEY,
	source_path   TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	format        TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT,
	error_message TEXT,
	chunk_count   INTEGER NOT NULL DEFAULT 0,
	text_chars    INTEGER NOT NULL DEFAULT 0,
	needs_review  INTEGER NOT NULL DEFAULT 0,
	review_notes  TEXT,
	record_json   TEXT,
	xml           TEXT,
	model_name    TEXT
)`,
	`CREATE INDEX IF NOT EXISTS protocol_run_content_hash ON protocol_run (content_hash)`,
	`CREATE INDEX IF NOT EXISTS protocol_run_started_at ON protocol_run (started_at)`,
}

// Migrate creates the journal tables when missing.
func Migrate(ctx context.Context, db *DB) error {
	for _, stmt := range schema {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
