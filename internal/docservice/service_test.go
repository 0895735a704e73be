package docservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/storage"
)

func testManager(t *testing.T) (*Manager, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, nil, WithLogger(logger)), store
}

func TestOpenEditSave(t *testing.T) {
	m, store := testManager(t)
	_ = store.Write("note.html", []byte("<p>hello</p>"))

	sess, err := m.Open(context.Background(), "note.html")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("session id empty")
	}
	if got := sess.Engine.Markup(); got != "<p>hello</p>" {
		t.Fatalf("Markup = %q", got)
	}

	if !sess.Engine.TypeText("!") {
		t.Fatal("TypeText failed")
	}
	if _, err := m.Save(context.Background(), sess.ID, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := store.Read("note.html")
	if string(data) != "<p>!hello</p>" {
		t.Errorf("saved content = %q", data)
	}
}

func TestOpenMissingDocument(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.Open(context.Background(), "absent.html"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate(t *testing.T) {
	m, store := testManager(t)
	sess, err := m.Create(context.Background(), "fresh.html")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := sess.Engine.Markup(); got != "<p></p>" {
		t.Errorf("Markup = %q", got)
	}
	data, _ := store.Read("fresh.html")
	if string(data) != "<p></p>" {
		t.Errorf("file content = %q", data)
	}

	if _, err := m.Create(context.Background(), "fresh.html"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create err = %v, want ErrAlreadyExists", err)
	}
}

func TestSaveConflictOnExternalChange(t *testing.T) {
	m, store := testManager(t)
	_ = store.Write("note.html", []byte("<p>v1</p>"))
	sess, err := m.Open(context.Background(), "note.html")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Another writer changes the file behind the session's back.
	_ = store.Write("note.html", []byte("<p>v2</p>"))

	if _, err := m.Save(context.Background(), sess.ID, ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("Save err = %v, want ErrConflict", err)
	}
}

func TestSaveIfMatch(t *testing.T) {
	m, store := testManager(t)
	_ = store.Write("note.html", []byte("<p>v1</p>"))
	sess, _ := m.Open(context.Background(), "note.html")

	if _, err := m.Save(context.Background(), sess.ID, "bogus"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("Save with wrong If-Match err = %v, want ErrConflict", err)
	}
	chk, err := m.Save(context.Background(), sess.ID, sess.Checksum())
	if err != nil {
		t.Fatalf("Save with correct If-Match: %v", err)
	}
	if chk == "" {
		t.Error("returned checksum empty")
	}
}

func TestCloseAndGet(t *testing.T) {
	m, store := testManager(t)
	_ = store.Write("note.html", []byte("<p>x</p>"))
	sess, _ := m.Open(context.Background(), "note.html")

	if _, err := m.Get(sess.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := m.Close(sess.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Get(sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Get after close err = %v, want ErrNotFound", err)
	}
	if err := m.Close(sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second Close err = %v, want ErrNotFound", err)
	}
}

func TestNotifierEvents(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var events []string
	m := NewManager(store, nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNotifier(func(event, path string) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		}))

	_ = store.Write("note.html", []byte("<p>x</p>"))
	sess, _ := m.Open(context.Background(), "note.html")
	sess.Engine.TypeText("y")
	_, _ = m.Save(context.Background(), sess.ID, "")
	_ = m.Close(sess.ID)

	mu.Lock()
	defer mu.Unlock()
	want := map[string]bool{"opened": false, "changed": false, "saved": false, "closed": false}
	for _, e := range events {
		want[e] = true
	}
	for e, seen := range want {
		if !seen {
			t.Errorf("event %q never fired (events: %v)", e, events)
		}
	}
}

func TestListDocuments(t *testing.T) {
	m, store := testManager(t)
	_ = store.Write("a.html", []byte("<p>a</p>"))
	_ = store.Write("b.html", []byte("<p>b</p>"))
	docs, err := m.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("len = %d, want 2", len(docs))
	}
}
