//go:build !sqlite_fts5

package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/quill/internal/editor/mention"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses a LIKE fallback on the records table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ Row, _ string) error {
	// Searchable fields already live in the records table.
	return nil
}

func ftsDeleteSource(_ *sql.Tx, _ string) {}

// search performs a LIKE-based search (fallback when FTS5 is not compiled
// in), ranking title matches ahead of subtitle and data matches.
func (db *DB) search(ctx context.Context, query string, limit int) ([]mention.Record, error) {
	if limit <= 0 {
		limit = recentLimit
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, title, subtitle, data
		FROM records
		WHERE title LIKE ? OR subtitle LIKE ? OR data LIKE ?
		ORDER BY CASE WHEN title LIKE ? THEN 0 ELSE 1 END, updated_at DESC
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("directory: search: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}
