package mention

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeLookup answers every query with a single record derived from the
// query text. When gate is non-nil, Search blocks until the gate closes.
type fakeLookup struct {
	mu      sync.Mutex
	gate    chan struct{}
	queries []string
	fail    bool
}

func (l *fakeLookup) Search(_ context.Context, query string) ([]Record, error) {
	l.mu.Lock()
	l.queries = append(l.queries, query)
	gate := l.gate
	fail := l.fail
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, context.DeadlineExceeded
	}
	return []Record{{ID: "r-" + query, Kind: "note", Title: query}}, nil
}

func (l *fakeLookup) Refresh(_ context.Context, id, kind string) (*Record, bool, error) {
	return &Record{ID: id, Kind: kind, Title: "refreshed"}, true, nil
}

func (l *fakeLookup) queryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queries)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTriggerBoundary(t *testing.T) {
	tests := []struct {
		prev rune
		want bool
	}{
		{0, true},
		{' ', true},
		{'\n', true},
		{'(', true},
		{'a', false},
		{'1', false},
		{'.', false},
	}
	for _, tt := range tests {
		if got := TriggerBoundary(tt.prev); got != tt.want {
			t.Errorf("TriggerBoundary(%q) = %v, want %v", tt.prev, got, tt.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	lookup := &fakeLookup{}
	s := NewSession(lookup, WithDebounce(time.Millisecond))

	s.Start()
	if got := s.State(); got == StateIdle {
		t.Fatal("session idle after Start")
	}
	waitFor(t, "initial suggestions", func() bool { return s.State() == StateSuggesting })

	s.Extend('m')
	s.Extend('a')
	waitFor(t, "query suggestions", func() bool {
		recs, _ := s.Suggestions()
		return len(recs) == 1 && recs[0].ID == "r-ma"
	})

	rec, span, ok := s.Commit()
	if !ok {
		t.Fatal("commit failed with a highlighted suggestion")
	}
	if rec.ID != "r-ma" {
		t.Errorf("committed record = %q, want r-ma", rec.ID)
	}
	if span != 3 {
		t.Errorf("span = %d, want 3 (trigger + 2 runes)", span)
	}
	if s.State() != StateIdle {
		t.Error("session should be idle after commit")
	}
}

func TestStaleSearchDiscarded(t *testing.T) {
	gate := make(chan struct{})
	lookup := &fakeLookup{gate: gate}
	s := NewSession(lookup, WithDebounce(time.Millisecond))

	s.Start()
	waitFor(t, "first search in flight", func() bool { return lookup.queryCount() == 1 })

	s.Extend('m')
	waitFor(t, "second search in flight", func() bool { return lookup.queryCount() == 2 })

	// Release both searches; only the newer generation may land.
	close(gate)
	waitFor(t, "fresh suggestions", func() bool {
		recs, _ := s.Suggestions()
		return s.State() == StateSuggesting && len(recs) == 1 && recs[0].ID == "r-m"
	})

	// The stale empty-query result must not overwrite the fresh one.
	time.Sleep(20 * time.Millisecond)
	recs, _ := s.Suggestions()
	if len(recs) != 1 || recs[0].ID != "r-m" {
		t.Fatalf("stale result overwrote suggestions: %+v", recs)
	}
}

func TestWhitespaceDismisses(t *testing.T) {
	s := NewSession(&fakeLookup{}, WithDebounce(time.Millisecond))
	s.Start()
	s.Extend(' ')
	if s.State() != StateIdle {
		t.Fatal("space should dismiss the session")
	}
}

func TestQueryCapDismisses(t *testing.T) {
	s := NewSession(&fakeLookup{}, WithDebounce(time.Millisecond), WithQueryCap(3))
	s.Start()
	for _, r := range "abc" {
		s.Extend(r)
	}
	if s.State() == StateIdle {
		t.Fatal("session dismissed before the cap")
	}
	s.Extend('d')
	if s.State() != StateIdle {
		t.Fatal("session should dismiss past the query cap")
	}
}

func TestBackspacePastTriggerDismisses(t *testing.T) {
	s := NewSession(&fakeLookup{}, WithDebounce(time.Millisecond))
	s.Start()
	s.Extend('a')
	s.Backspace()
	if s.State() == StateIdle {
		t.Fatal("backspace within the query should keep the session open")
	}
	s.Backspace()
	if s.State() != StateIdle {
		t.Fatal("backspace past the trigger should dismiss")
	}
}

func TestNavigateClamps(t *testing.T) {
	recs := []Record{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	s := NewSession(&fakeLookup{}, WithDebounce(time.Millisecond))
	s.mu.Lock()
	s.state = StateSuggesting
	s.suggestions = recs
	s.mu.Unlock()

	s.Navigate(-5)
	if _, hl := s.Suggestions(); hl != 0 {
		t.Fatalf("highlight = %d, want 0", hl)
	}
	s.Navigate(2)
	if _, hl := s.Suggestions(); hl != 2 {
		t.Fatalf("highlight = %d, want 2", hl)
	}
	s.Navigate(10)
	if _, hl := s.Suggestions(); hl != 2 {
		t.Fatalf("highlight = %d, want 2 (clamped)", hl)
	}
}

func TestFailedLookupKeepsSessionOpen(t *testing.T) {
	lookup := &fakeLookup{fail: true}
	s := NewSession(lookup, WithDebounce(time.Millisecond))
	s.Start()
	waitFor(t, "empty suggestion state", func() bool { return s.State() == StateSuggesting })
	recs, _ := s.Suggestions()
	if len(recs) != 0 {
		t.Fatalf("expected empty suggestions, got %+v", recs)
	}
	if _, _, ok := s.Commit(); ok {
		t.Fatal("commit with no suggestions should fail")
	}
}

func TestRegistryPerInstance(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.Put(Record{ID: "1", Kind: "note", Title: "n"})
	if _, ok := b.Get("1", "note"); ok {
		t.Fatal("registries must not share state")
	}
	rec, ok := a.Get("1", "note")
	if !ok || rec.Title != "n" {
		t.Fatalf("Get = %+v, %v", rec, ok)
	}
}

func TestRegistryKeepsDataAndStampsRefresh(t *testing.T) {
	r := NewRegistry()
	r.Put(Record{ID: "1", Kind: "note", Title: "n", Data: `{"color":"blue"}`})
	rec, ok := r.Get("1", "note")
	if !ok {
		t.Fatal("record missing after Put")
	}
	if rec.Data != `{"color":"blue"}` {
		t.Errorf("Data = %q", rec.Data)
	}
	if rec.RefreshedAt.IsZero() {
		t.Error("Put should stamp RefreshedAt")
	}
}

func TestRegistryRefresh(t *testing.T) {
	r := NewRegistry()
	r.Put(Record{ID: "1", Kind: "note", Title: "old"})
	rec, ok, err := r.Refresh(context.Background(), &fakeLookup{}, "1", "note")
	if err != nil || !ok {
		t.Fatalf("Refresh: %v, %v", ok, err)
	}
	if rec.Title != "refreshed" {
		t.Errorf("Title = %q, want refreshed", rec.Title)
	}
	got, _ := r.Get("1", "note")
	if got.Title != "refreshed" {
		t.Errorf("cached Title = %q, want refreshed", got.Title)
	}
	if got.RefreshedAt.IsZero() {
		t.Error("Refresh should stamp RefreshedAt")
	}
}
