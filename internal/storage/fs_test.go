package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("<h1>Hello</h1><p>World</p>")
	if err := s.Write("note.html", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.html")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("a/b/c.html", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.html")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("del.html", []byte("bye"))
	if err := s.Delete("del.html"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.html"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("old.html", []byte("data"))
	if err := s.Move("old.html", "sub/new.html"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.html")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.html"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("a.html", []byte("a"))
	_ = s.Write("sub/b.html", []byte("b"))
	_ = s.Write("readme.txt", []byte("not a document"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempWorkspace(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.html",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempWorkspace(t)
	original := []byte("original content")
	_ = s.Write("atomic.html", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.html", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.html")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".quill-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/quill-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "quill-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
