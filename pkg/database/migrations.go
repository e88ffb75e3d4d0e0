package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSearchIndexes creates the full-text search GIN index backing
// GET /tickets/search?q=, which is not expressible as a plain column
// index and so is applied here rather than in a migration file.
func CreateSearchIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_tickets_subject_body_gin
		ON tickets USING gin(to_tsvector('simple', coalesce(subject, '') || ' ' || body))`)
	if err != nil {
		return fmt.Errorf("failed to create ticket search GIN index: %w", err)
	}
	return nil
}
