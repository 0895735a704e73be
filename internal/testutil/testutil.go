// Package testutil provides shared test helpers for setting up workspaces and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/quill/internal/directory"
	"github.com/starford/quill/internal/storage"
)

// TestDirectory creates a temporary SQLite record directory that is
// automatically cleaned up.
func TestDirectory(t *testing.T) *directory.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "quill-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := directory.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
