//go:build sqlite_fts5

package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/quill/internal/editor/mention"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			id UNINDEXED,
			kind UNINDEXED,
			title,
			subtitle,
			data,
			source UNINDEXED,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, r Row, source string) error {
	_, _ = tx.Exec(`DELETE FROM records_fts WHERE id = ? AND kind = ?`, r.ID, r.Kind)
	_, err := tx.Exec(`
		INSERT INTO records_fts (id, kind, title, subtitle, data, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Kind, r.Title, r.Subtitle, r.Data, source)
	if err != nil {
		return fmt.Errorf("directory: upsert fts: %w", err)
	}
	return nil
}

func ftsDeleteSource(tx *sql.Tx, source string) {
	_, _ = tx.Exec(`DELETE FROM records_fts WHERE source = ?`, source)
}

// search performs an FTS5 prefix search weighted toward title matches.
func (db *DB) search(ctx context.Context, query string, limit int) ([]mention.Record, error) {
	if limit <= 0 {
		limit = recentLimit
	}
	// Quote the query so user input cannot inject FTS syntax; the trailing
	// '*' makes it a prefix match for autocomplete.
	match := `"` + strings.ReplaceAll(query, `"`, `""`) + `"*`
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, title, subtitle, data
		FROM records_fts
		WHERE records_fts MATCH ?
		ORDER BY bm25(records_fts, 0, 0, 10.0, 3.0, 1.0, 0)
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("directory: search: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}
