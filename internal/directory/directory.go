// Package directory provides the SQLite-backed index of mentionable portal
// records (assignments, courses, people, notes) with optional FTS5 search.
// Records arrive as YAML files in the records directory and are kept
// current by Sync and Watch. The DB implements mention.Lookup.
package directory

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT NOT NULL,
	kind        TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	subtitle    TEXT NOT NULL DEFAULT '',
	data        TEXT NOT NULL DEFAULT '{}',
	source_path TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (id, kind)
);

CREATE INDEX IF NOT EXISTS idx_records_source ON records(source_path);
CREATE INDEX IF NOT EXISTS idx_records_updated ON records(updated_at);

CREATE TABLE IF NOT EXISTS record_sources (
	path     TEXT PRIMARY KEY,
	checksum TEXT NOT NULL DEFAULT ''
);
`

// DB wraps a sql.DB with record-directory operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("directory: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("directory: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("directory: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("directory: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
