package history

import (
	"fmt"
	"testing"
	"time"
)

func TestUndoRedoInverse(t *testing.T) {
	s := New()
	s.Init("<p></p>")
	s.Commit("<p>a</p>")
	s.Commit("<p>ab</p>")

	snap, ok := s.Undo()
	if !ok || snap.Markup != "<p>a</p>" {
		t.Fatalf("undo = %q, %v; want <p>a</p>, true", snap.Markup, ok)
	}
	snap, ok = s.Undo()
	if !ok || snap.Markup != "<p></p>" {
		t.Fatalf("undo = %q, %v; want <p></p>, true", snap.Markup, ok)
	}
	if _, ok := s.Undo(); ok {
		t.Fatal("undo past the baseline should fail")
	}

	snap, ok = s.Redo()
	if !ok || snap.Markup != "<p>a</p>" {
		t.Fatalf("redo = %q, %v; want <p>a</p>, true", snap.Markup, ok)
	}
	snap, ok = s.Redo()
	if !ok || snap.Markup != "<p>ab</p>" {
		t.Fatalf("redo = %q, %v; want <p>ab</p>, true", snap.Markup, ok)
	}
	if _, ok := s.Redo(); ok {
		t.Fatal("redo past the newest entry should fail")
	}
}

func TestCommitTruncatesRedoTail(t *testing.T) {
	s := New()
	s.Init("a")
	s.Commit("b")
	s.Commit("c")
	if _, ok := s.Undo(); !ok {
		t.Fatal("undo failed")
	}
	s.Commit("d")
	if s.CanRedo() {
		t.Fatal("redo tail should be gone after a commit")
	}
	snap, ok := s.Undo()
	if !ok || snap.Markup != "b" {
		t.Fatalf("undo = %q, %v; want b, true", snap.Markup, ok)
	}
}

func TestCommitSkipsIdentical(t *testing.T) {
	s := New()
	s.Init("a")
	s.Commit("a")
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestLimitDropsOldest(t *testing.T) {
	s := New(WithLimit(3))
	s.Init("0")
	for i := 1; i <= 5; i++ {
		s.Commit(fmt.Sprintf("%d", i))
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	// Walk back to the oldest retained entry.
	var last Snapshot
	for {
		snap, ok := s.Undo()
		if !ok {
			break
		}
		last = snap
	}
	if last.Markup != "3" {
		t.Fatalf("oldest = %q, want 3", last.Markup)
	}
}

func TestRecordSupersedesPending(t *testing.T) {
	s := New(WithDebounce(time.Hour))
	s.Init("")
	s.Record("a")
	s.Record("ab")
	s.Flush()
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	snap, ok := s.Undo()
	if !ok || snap.Markup != "" {
		t.Fatalf("undo = %q, %v; want baseline", snap.Markup, ok)
	}
	snap, ok = s.Redo()
	if !ok || snap.Markup != "ab" {
		t.Fatalf("redo = %q, %v; want ab", snap.Markup, ok)
	}
}

func TestRecordCommitsAfterQuietPeriod(t *testing.T) {
	s := New(WithDebounce(10 * time.Millisecond))
	s.Init("")
	s.Record("a")

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("debounced record never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUndoFlushesPending(t *testing.T) {
	s := New(WithDebounce(time.Hour))
	s.Init("a")
	s.Record("ab")
	snap, ok := s.Undo()
	if !ok || snap.Markup != "a" {
		t.Fatalf("undo = %q, %v; want a, true", snap.Markup, ok)
	}
	snap, ok = s.Redo()
	if !ok || snap.Markup != "ab" {
		t.Fatalf("redo = %q, %v; want ab, true", snap.Markup, ok)
	}
}
