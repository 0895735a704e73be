// Package history keeps a bounded linear stack of document snapshots with
// a cursor, so undo and redo are simple cursor moves. Commits are usually
// debounced: a burst of typing collapses into one entry.
package history

import (
	"sync"
	"time"
)

const (
	// DefaultLimit bounds the stack; the oldest entry is dropped first.
	DefaultLimit = 100
	// DefaultDebounce is the quiet period before a recorded change commits.
	DefaultDebounce = 500 * time.Millisecond
)

// Snapshot is one committed document state.
type Snapshot struct {
	Markup string
	Seq    uint64
}

// Option configures a Stack.
type Option func(*Stack)

// WithLimit caps the number of retained snapshots.
func WithLimit(n int) Option {
	return func(s *Stack) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithDebounce sets the quiet period for Record.
func WithDebounce(d time.Duration) Option {
	return func(s *Stack) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// Stack is a bounded snapshot stack. All methods are safe for concurrent
// use; the debounce timer re-enters through the same lock.
type Stack struct {
	mu       sync.Mutex
	entries  []Snapshot
	cursor   int
	limit    int
	debounce time.Duration
	seq      uint64

	// gen invalidates a pending debounce when a newer Record supersedes it.
	gen        uint64
	pending    string
	hasPending bool
	timer      *time.Timer
}

// New returns an empty stack. Call Init to seed the baseline state.
func New(opts ...Option) *Stack {
	s := &Stack{limit: DefaultLimit, debounce: DefaultDebounce, cursor: -1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init resets the stack to a single baseline snapshot. Any pending record
// is discarded.
func (s *Stack) Init(markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropPendingLocked()
	s.seq++
	s.entries = []Snapshot{{Markup: markup, Seq: s.seq}}
	s.cursor = 0
}

// Commit appends a snapshot immediately, truncating any redo tail. A
// snapshot identical to the current one is skipped.
func (s *Stack) Commit(markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropPendingLocked()
	s.commitLocked(markup)
}

// Record schedules a debounced commit. Each call restarts the quiet
// period and supersedes any earlier pending markup.
func (s *Stack) Record(markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	gen := s.gen
	s.pending = markup
	s.hasPending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || !s.hasPending {
			return
		}
		markup := s.pending
		s.dropPendingLocked()
		s.commitLocked(markup)
	})
}

// Flush commits any pending record immediately.
func (s *Stack) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPending {
		return
	}
	markup := s.pending
	s.dropPendingLocked()
	s.commitLocked(markup)
}

// Undo flushes any pending record, then moves the cursor back and returns
// the snapshot there. It fails at the oldest entry.
func (s *Stack) Undo() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	if s.cursor <= 0 {
		return Snapshot{}, false
	}
	s.cursor--
	return s.entries[s.cursor], true
}

// Redo moves the cursor forward and returns the snapshot there. A pending
// record is flushed first, which truncates the redo tail, so redo after
// fresh edits fails.
func (s *Stack) Redo() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
	if s.cursor < 0 || s.cursor+1 >= len(s.entries) {
		return Snapshot{}, false
	}
	s.cursor++
	return s.entries[s.cursor], true
}

// CanUndo reports whether Undo would succeed (pending records count as an
// undoable step).
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor > 0 || (s.hasPending && s.cursor >= 0 && s.pending != s.entries[s.cursor].Markup)
}

// CanRedo reports whether Redo would succeed.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.hasPending && s.cursor >= 0 && s.cursor+1 < len(s.entries)
}

// Len returns the number of committed snapshots.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Stack) flushLocked() {
	if !s.hasPending {
		return
	}
	markup := s.pending
	s.dropPendingLocked()
	s.commitLocked(markup)
}

func (s *Stack) commitLocked(markup string) {
	if s.cursor >= 0 && s.entries[s.cursor].Markup == markup {
		return
	}
	s.entries = s.entries[:s.cursor+1]
	s.seq++
	s.entries = append(s.entries, Snapshot{Markup: markup, Seq: s.seq})
	if len(s.entries) > s.limit {
		drop := len(s.entries) - s.limit
		s.entries = append(s.entries[:0:0], s.entries[drop:]...)
	}
	s.cursor = len(s.entries) - 1
}

func (s *Stack) dropPendingLocked() {
	s.gen++
	s.hasPending = false
	s.pending = ""
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
