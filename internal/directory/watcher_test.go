package directory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchIndexesAndRemoves(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	logger := discardLogger()

	var mu sync.Mutex
	var events []string
	cb := func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, root, logger, cb)
	}()
	// Give the watcher a moment to arm before producing events.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(root, "new.yaml")
	if err := os.WriteFile(path, []byte("id: w1\nkind: note\ntitle: Watched\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "record indexed", func() bool {
		_, ok, _ := db.Refresh(context.Background(), "w1", "note")
		return ok
	})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "record removed", func() bool {
		_, ok, _ := db.Refresh(context.Background(), "w1", "note")
		return !ok
	})

	mu.Lock()
	got := len(events)
	mu.Unlock()
	if got < 2 {
		t.Errorf("callback fired %d times, want at least 2", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatchPicksUpNewDirectories(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = Watch(ctx, db, root, discardLogger(), nil) }()
	time.Sleep(50 * time.Millisecond)

	sub := filepath.Join(root, "courses")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "c.yaml"), []byte("id: c9\nkind: course\ntitle: Deep\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "record in new dir indexed", func() bool {
		_, ok, _ := db.Refresh(context.Background(), "c9", "course")
		return ok
	})
}
