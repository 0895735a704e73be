package directory

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpsertAndRefresh(t *testing.T) {
	db := testDB(t)
	rows := []Row{
		{ID: "a1", Kind: "assignment", Title: "Physics essay", Subtitle: "Due Friday"},
		{ID: "c1", Kind: "course", Title: "Physics 101"},
	}
	if err := db.UpsertSource("assignments.yaml", "chk1", rows); err != nil {
		t.Fatalf("UpsertSource: %v", err)
	}

	rec, ok, err := db.Refresh(context.Background(), "a1", "assignment")
	if err != nil || !ok {
		t.Fatalf("Refresh: %v, %v", ok, err)
	}
	if rec.Title != "Physics essay" || rec.Subtitle != "Due Friday" {
		t.Errorf("record = %+v", rec)
	}

	if _, ok, err := db.Refresh(context.Background(), "missing", "assignment"); err != nil || ok {
		t.Errorf("missing record: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestSearchRanksTitleMatchesFirst(t *testing.T) {
	db := testDB(t)
	rows := []Row{
		{ID: "p1", Kind: "person", Title: "Morrison, Avery", Subtitle: "Teacher"},
		{ID: "a1", Kind: "assignment", Title: "Lab report", Subtitle: "Marked by Morrison"},
	}
	if err := db.UpsertSource("mixed.yaml", "chk", rows); err != nil {
		t.Fatalf("UpsertSource: %v", err)
	}

	recs, err := db.Search(context.Background(), "Morrison")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	if recs[0].ID != "p1" {
		t.Errorf("first hit = %s, want the title match p1", recs[0].ID)
	}
}

// The opaque data payload stored with a record must come back through
// every lookup path, not just live in the table.
func TestLookupCarriesDataPayload(t *testing.T) {
	db := testDB(t)
	rows := []Row{
		{ID: "a1", Kind: "assignment", Title: "Biology essay", Data: `{"due":"2026-09-01"}`},
		{ID: "n1", Kind: "note", Title: "Plain note"},
	}
	if err := db.UpsertSource("records.yaml", "chk", rows); err != nil {
		t.Fatalf("UpsertSource: %v", err)
	}

	rec, ok, err := db.Refresh(context.Background(), "a1", "assignment")
	if err != nil || !ok {
		t.Fatalf("Refresh: %v, %v", ok, err)
	}
	if rec.Data != `{"due":"2026-09-01"}` {
		t.Errorf("Refresh Data = %q", rec.Data)
	}

	recs, err := db.Search(context.Background(), "Biology")
	if err != nil || len(recs) == 0 {
		t.Fatalf("Search: %v, %d hits", err, len(recs))
	}
	if recs[0].Data != `{"due":"2026-09-01"}` {
		t.Errorf("Search Data = %q", recs[0].Data)
	}

	recent, err := db.Search(context.Background(), "")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	for _, r := range recent {
		if r.Data == "" {
			t.Errorf("recent record %s/%s has empty Data, want at least {}", r.Kind, r.ID)
		}
	}
}

func TestSearchEmptyQueryReturnsRecent(t *testing.T) {
	db := testDB(t)
	base := time.Now().UTC()
	var rows []Row
	for i := 0; i < 15; i++ {
		rows = append(rows, Row{
			ID:        string(rune('a' + i)),
			Kind:      "note",
			Title:     "Note",
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := db.UpsertSource("notes.yaml", "chk", rows); err != nil {
		t.Fatalf("UpsertSource: %v", err)
	}

	recs, err := db.Search(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 10 {
		t.Fatalf("len = %d, want 10 most recent", len(recs))
	}
	if recs[0].ID != "o" {
		t.Errorf("first = %s, want the newest record o", recs[0].ID)
	}
}

func TestDeleteSource(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertSource("s.yaml", "chk", []Row{{ID: "x", Kind: "note", Title: "X"}})
	if err := db.DeleteSource("s.yaml"); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	if _, ok, _ := db.Refresh(context.Background(), "x", "note"); ok {
		t.Error("record should be gone with its source")
	}
	srcs, _ := db.AllSources()
	if len(srcs) != 0 {
		t.Errorf("AllSources = %v, want empty", srcs)
	}
}

func TestParseRecordFile(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{
			name: "single",
			in:   "id: a1\nkind: assignment\ntitle: Essay\n",
			want: 1,
		},
		{
			name: "list",
			in:   "records:\n  - id: a1\n    kind: assignment\n    title: One\n  - id: a2\n    kind: assignment\n    title: Two\n",
			want: 2,
		},
		{
			name:    "missing kind",
			in:      "records:\n  - id: a1\n    title: One\n",
			wantErr: true,
		},
		{
			name: "empty file",
			in:   "",
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := parseRecordFile([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRecordFile: %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("len = %d, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestParseRecordFileDataBlob(t *testing.T) {
	rows, err := parseRecordFile([]byte("id: a1\nkind: assignment\ntitle: Essay\ndata:\n  due: Friday\n"))
	if err != nil {
		t.Fatalf("parseRecordFile: %v", err)
	}
	if rows[0].Data != `{"due":"Friday"}` {
		t.Errorf("Data = %q", rows[0].Data)
	}
}

func TestSyncAddsUpdatesAndRemoves(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	logger := discardLogger()

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("a.yaml", "id: a1\nkind: note\ntitle: First\n")
	write("b.yaml", "id: b1\nkind: note\ntitle: Second\n")
	if err := Sync(db, root, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if rec, ok, _ := db.Refresh(context.Background(), "a1", "note"); !ok || rec.Title != "First" {
		t.Fatalf("a1 = %+v, %v", rec, ok)
	}

	// Update one file, remove the other.
	write("a.yaml", "id: a1\nkind: note\ntitle: Renamed\n")
	if err := os.Remove(filepath.Join(root, "b.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, root, logger); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if rec, _, _ := db.Refresh(context.Background(), "a1", "note"); rec == nil || rec.Title != "Renamed" {
		t.Errorf("a1 after update = %+v", rec)
	}
	if _, ok, _ := db.Refresh(context.Background(), "b1", "note"); ok {
		t.Error("b1 should be removed with its file")
	}
}
