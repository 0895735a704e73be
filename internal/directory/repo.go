package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/quill/internal/editor/mention"
)

// RecordIndex defines the directory operations consumers depend on.
// It embeds mention.Lookup so an engine can be wired straight to a *DB.
type RecordIndex interface {
	mention.Lookup
	UpsertSource(path, chk string, recs []Row) error
	DeleteSource(path string) error
	AllSources() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)

// Row is one stored record plus its provenance.
type Row struct {
	ID        string
	Kind      string
	Title     string
	Subtitle  string
	Data      string
	UpdatedAt time.Time
}

// recentLimit is the size of the empty-query suggestion set.
const recentLimit = 10

// UpsertSource replaces every record originating from one source file in a
// single transaction and remembers the file's checksum.
func (db *DB) UpsertSource(path, chk string, recs []Row) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("directory: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	ftsDeleteSource(tx, path)
	if _, err := tx.Exec(`DELETE FROM records WHERE source_path = ?`, path); err != nil {
		return fmt.Errorf("directory: clear source: %w", err)
	}

	for _, r := range recs {
		updated := r.UpdatedAt
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		if r.Data == "" {
			r.Data = "{}"
		}
		_, err := tx.Exec(`
			INSERT INTO records (id, kind, title, subtitle, data, source_path, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id, kind) DO UPDATE SET
				title       = excluded.title,
				subtitle    = excluded.subtitle,
				data        = excluded.data,
				source_path = excluded.source_path,
				updated_at  = excluded.updated_at
		`, r.ID, r.Kind, r.Title, r.Subtitle, r.Data, path, updated)
		if err != nil {
			return fmt.Errorf("directory: upsert record %s/%s: %w", r.Kind, r.ID, err)
		}
		if err := ftsUpsert(tx, r, path); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO record_sources (path, checksum) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET checksum = excluded.checksum
	`, path, chk); err != nil {
		return fmt.Errorf("directory: upsert source: %w", err)
	}

	return tx.Commit()
}

// DeleteSource removes a source file's records and checksum entry.
func (db *DB) DeleteSource(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("directory: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteSource(tx, path)
	_, _ = tx.Exec(`DELETE FROM records WHERE source_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM record_sources WHERE path = ?`, path)

	return tx.Commit()
}

// AllSources returns every indexed source path with its checksum.
func (db *DB) AllSources() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM record_sources`)
	if err != nil {
		return nil, fmt.Errorf("directory: all sources: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Search implements mention.Lookup. An empty query returns the most
// recently updated records.
func (db *DB) Search(ctx context.Context, query string) ([]mention.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return db.recent(ctx)
	}
	return db.search(ctx, query, recentLimit)
}

// Refresh implements mention.Lookup: it re-reads one record by id/kind.
func (db *DB) Refresh(ctx context.Context, id, kind string) (*mention.Record, bool, error) {
	var rec mention.Record
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, kind, title, subtitle, data FROM records WHERE id = ? AND kind = ?
	`, id, kind).Scan(&rec.ID, &rec.Kind, &rec.Title, &rec.Subtitle, &rec.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("directory: refresh %s/%s: %w", kind, id, err)
	}
	return &rec, true, nil
}

func scanRecords(rows *sql.Rows) ([]mention.Record, error) {
	var out []mention.Record
	for rows.Next() {
		var rec mention.Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Title, &rec.Subtitle, &rec.Data); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (db *DB) recent(ctx context.Context) ([]mention.Record, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, title, subtitle, data
		FROM records
		ORDER BY updated_at DESC
		LIMIT ?
	`, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("directory: recent: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}
