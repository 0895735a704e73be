package mention

import (
	"context"
	"sync"
	"time"
	"unicode"
)

// State is the session's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateTriggered
	StateSearching
	StateSuggesting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggered:
		return "triggered"
	case StateSearching:
		return "searching"
	case StateSuggesting:
		return "suggesting"
	}
	return "unknown"
}

const (
	// DefaultDebounce is the quiet period between the last keystroke and
	// the lookup call.
	DefaultDebounce = 200 * time.Millisecond
	// DefaultQueryCap dismisses a query that grows past this many runes.
	DefaultQueryCap = 50
	// DefaultTrigger starts a mention at a word boundary.
	DefaultTrigger = '@'

	searchTimeout = 3 * time.Second
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithDebounce sets the search quiet period.
func WithDebounce(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithQueryCap sets the maximum query length before auto-dismissal.
func WithQueryCap(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.queryCap = n
		}
	}
}

// WithTrigger sets the trigger rune.
func WithTrigger(r rune) SessionOption {
	return func(s *Session) {
		if r != 0 {
			s.trigger = r
		}
	}
}

// WithNotify registers a callback invoked whenever the suggestion list or
// highlight changes. It runs without the session lock held.
func WithNotify(fn func()) SessionOption {
	return func(s *Session) { s.notify = fn }
}

// Session drives one mention interaction: trigger, per-keystroke query
// extension, debounced search, keyboard navigation, commit or dismissal.
// Searches are generation-stamped so a stale response can never overwrite
// the suggestions for a newer query.
type Session struct {
	lookup   Lookup
	debounce time.Duration
	queryCap int
	trigger  rune
	notify   func()

	mu          sync.Mutex
	state       State
	query       []rune
	suggestions []Record
	highlight   int
	gen         uint64
	timer       *time.Timer
}

// NewSession returns an idle session backed by the lookup.
func NewSession(lookup Lookup, opts ...SessionOption) *Session {
	s := &Session{
		lookup:   lookup,
		debounce: DefaultDebounce,
		queryCap: DefaultQueryCap,
		trigger:  DefaultTrigger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger returns the configured trigger rune.
func (s *Session) Trigger() rune { return s.trigger }

// Active reports whether a mention interaction is in progress.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateIdle
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Query returns the typed query so far, without the trigger.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.query)
}

// SpanLen is the rune length of the trigger plus the query, i.e. the text
// span a committed mention replaces.
func (s *Session) SpanLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return 0
	}
	return 1 + len(s.query)
}

// Suggestions returns the current suggestion list and highlight index.
func (s *Session) Suggestions() ([]Record, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.suggestions))
	copy(out, s.suggestions)
	return out, s.highlight
}

// Start begins a new interaction. Any interaction already in progress is
// replaced. The initial empty query searches immediately for the recent
// record set.
func (s *Session) Start() {
	s.mu.Lock()
	s.state = StateTriggered
	s.query = s.query[:0]
	s.suggestions = nil
	s.highlight = 0
	s.scheduleSearchLocked()
	s.mu.Unlock()
	s.fireNotify()
}

// Extend appends a typed rune to the query. Whitespace and over-long
// queries dismiss the session; the rune still belongs to the document, so
// the caller keeps inserting it either way.
func (s *Session) Extend(r rune) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	if unicode.IsSpace(r) || len(s.query)+1 > s.queryCap {
		s.dismissLocked()
		s.mu.Unlock()
		s.fireNotify()
		return
	}
	s.query = append(s.query, r)
	s.scheduleSearchLocked()
	s.mu.Unlock()
	s.fireNotify()
}

// Backspace shortens the query by one rune; deleting past the trigger
// dismisses the session.
func (s *Session) Backspace() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	if len(s.query) == 0 {
		s.dismissLocked()
		s.mu.Unlock()
		s.fireNotify()
		return
	}
	s.query = s.query[:len(s.query)-1]
	s.scheduleSearchLocked()
	s.mu.Unlock()
	s.fireNotify()
}

// Navigate moves the highlight by delta, clamped to the list bounds.
func (s *Session) Navigate(delta int) {
	s.mu.Lock()
	if s.state != StateSuggesting || len(s.suggestions) == 0 {
		s.mu.Unlock()
		return
	}
	s.highlight += delta
	if s.highlight < 0 {
		s.highlight = 0
	}
	if s.highlight >= len(s.suggestions) {
		s.highlight = len(s.suggestions) - 1
	}
	s.mu.Unlock()
	s.fireNotify()
}

// Commit closes the interaction and returns the highlighted record plus
// the span length to replace. It fails when nothing is highlighted.
func (s *Session) Commit() (Record, int, bool) {
	s.mu.Lock()
	if s.state != StateSuggesting || len(s.suggestions) == 0 {
		s.mu.Unlock()
		return Record{}, 0, false
	}
	rec := s.suggestions[s.highlight]
	span := 1 + len(s.query)
	s.dismissLocked()
	s.mu.Unlock()
	s.fireNotify()
	return rec, span, true
}

// Dismiss abandons the interaction, leaving the typed text in place.
func (s *Session) Dismiss() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.dismissLocked()
	s.mu.Unlock()
	s.fireNotify()
}

func (s *Session) dismissLocked() {
	s.gen++
	s.state = StateIdle
	s.query = s.query[:0]
	s.suggestions = nil
	s.highlight = 0
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// scheduleSearchLocked restarts the debounce; the fired search is stamped
// with the generation current at scheduling time, so any query change in
// the meantime makes its result stale.
func (s *Session) scheduleSearchLocked() {
	s.gen++
	gen := s.gen
	query := string(s.query)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.runSearch(gen, query)
	})
}

func (s *Session) runSearch(gen uint64, query string) {
	s.mu.Lock()
	if gen != s.gen || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateSearching
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()
	recs, err := s.lookup.Search(ctx, query)
	if err != nil {
		// A failed lookup degrades to an empty list; the session stays
		// open so the next keystroke can retry.
		recs = nil
	}

	s.mu.Lock()
	if gen != s.gen || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.suggestions = recs
	s.highlight = 0
	s.state = StateSuggesting
	s.mu.Unlock()
	s.fireNotify()
}

func (s *Session) fireNotify() {
	if s.notify != nil {
		s.notify()
	}
}
