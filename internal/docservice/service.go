// Package docservice manages editing sessions: one engine per open
// document, addressed by session id. The manager guards the session map;
// each engine serializes its own mutation internally.
package docservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/checksum"
	"github.com/starford/quill/internal/editor"
	"github.com/starford/quill/internal/editor/mention"
	"github.com/starford/quill/internal/storage"
)

// Session is one open document bound to an engine.
type Session struct {
	ID       string
	Path     string
	Engine   *editor.Engine
	OpenedAt time.Time

	mu sync.Mutex
	// checksum of the file content as of the last load or save, used for
	// conflict detection against concurrent on-disk changes.
	checksum string
}

// Checksum returns the session's last known file checksum.
func (s *Session) Checksum() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksum
}

// Notifier receives document lifecycle events ("opened", "saved",
// "changed", "closed") with the document path.
type Notifier func(event, path string)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithEngineOptions appends options applied to every engine the manager
// creates (history depth, debounce intervals, mention tunables).
func WithEngineOptions(opts ...editor.Option) Option {
	return func(m *Manager) { m.engineOpts = append(m.engineOpts, opts...) }
}

// WithNotifier sets the lifecycle event callback.
func WithNotifier(fn Notifier) Option {
	return func(m *Manager) { m.notify = fn }
}

// Manager owns the open sessions.
type Manager struct {
	store      storage.Provider
	lookup     mention.Lookup
	logger     *slog.Logger
	engineOpts []editor.Option
	notify     Notifier

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager over the document store. lookup
// backs every engine's mention search and may be nil.
func NewManager(store storage.Provider, lookup mention.Lookup, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		lookup:   lookup,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open loads a document into a fresh engine and returns the new session.
func (m *Manager) Open(ctx context.Context, path string) (*Session, error) {
	data, err := m.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	opts := make([]editor.Option, 0, len(m.engineOpts)+2)
	opts = append(opts, m.engineOpts...)
	if m.lookup != nil {
		opts = append(opts, editor.WithLookup(m.lookup))
	}
	opts = append(opts, editor.WithOnChange(func() {
		m.fireNotify("changed", path)
	}))

	eng := editor.New(opts...)
	if err := eng.LoadMarkup(string(data)); err != nil {
		return nil, err
	}
	eng.ResolveMentions(ctx)

	sess := &Session{
		ID:       uuid.NewString(),
		Path:     path,
		Engine:   eng,
		OpenedAt: time.Now(),
		checksum: checksum.Sum(data),
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("session opened", slog.String("id", sess.ID), slog.String("path", path))
	m.fireNotify("opened", path)
	return sess, nil
}

// Create writes a new empty document and opens a session on it.
func (m *Manager) Create(ctx context.Context, path string) (*Session, error) {
	if _, err := m.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := m.store.Write(path, []byte("<p></p>")); err != nil {
		return nil, err
	}
	return m.Open(ctx, path)
}

// Get returns the session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return sess, nil
}

// Save flushes pending history and writes the rendered document. When
// ifMatch is non-empty it must equal the current on-disk checksum; either
// way a document changed on disk since the session loaded it is a
// conflict.
func (m *Manager) Save(_ context.Context, id, ifMatch string) (string, error) {
	sess, err := m.Get(id)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	existing, readErr := m.store.Read(sess.Path)
	if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
		return "", readErr
	}
	if readErr == nil {
		onDisk := checksum.Sum(existing)
		if ifMatch != "" && ifMatch != onDisk {
			return "", apperr.ErrConflict
		}
		if ifMatch == "" && onDisk != sess.checksum {
			return "", apperr.ErrConflict
		}
	}

	sess.Engine.Flush()
	content := []byte(sess.Engine.Markup())
	if err := m.store.Write(sess.Path, content); err != nil {
		return "", err
	}
	sess.checksum = checksum.Sum(content)

	m.logger.Info("session saved", slog.String("id", id), slog.String("path", sess.Path))
	m.fireNotify("saved", sess.Path)
	return sess.checksum, nil
}

// Close discards a session without saving.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return apperr.ErrNotFound
	}
	m.logger.Info("session closed", slog.String("id", id), slog.String("path", sess.Path))
	m.fireNotify("closed", sess.Path)
	return nil
}

// Sessions lists the open sessions.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// ListDocuments returns workspace document metadata.
func (m *Manager) ListDocuments() ([]storage.DocumentInfo, error) {
	return m.store.List("")
}

func (m *Manager) fireNotify(event, path string) {
	if m.notify != nil {
		m.notify(event, path)
	}
}
