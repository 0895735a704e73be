package mention

import (
	"context"
	"sync"
	"time"
)

type recordKey struct {
	id   string
	kind string
}

// Registry caches the records backing a document's mentions. Each engine
// owns its own registry; nothing here is process-global.
type Registry struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[recordKey]Record)}
}

// Put stores a record, replacing any earlier entry for the same id/kind.
// A record without a refresh timestamp is stamped now.
func (r *Registry) Put(rec Record) {
	if rec.RefreshedAt.IsZero() {
		rec.RefreshedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recordKey{id: rec.ID, kind: rec.Kind}] = rec
}

// Get returns the cached record for an id/kind pair.
func (r *Registry) Get(id, kind string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[recordKey{id: id, kind: kind}]
	return rec, ok
}

// Len returns the number of cached records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Refresh re-reads one record through the lookup and updates the cache.
// A record the lookup no longer knows is evicted and reported false.
func (r *Registry) Refresh(ctx context.Context, lookup Lookup, id, kind string) (Record, bool, error) {
	rec, ok, err := lookup.Refresh(ctx, id, kind)
	if err != nil {
		return Record{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey{id: id, kind: kind}
	if !ok || rec == nil {
		delete(r.records, key)
		return Record{}, false, nil
	}
	fresh := *rec
	fresh.RefreshedAt = time.Now()
	r.records[key] = fresh
	return fresh, true, nil
}
