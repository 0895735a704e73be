// Package mention implements the @-mention autocomplete session and the
// per-engine record registry. Suggestions come from a Lookup, typically
// the sqlite record directory.
package mention

import (
	"context"
	"time"
)

// Record is one mentionable portal entity (assignment, course, person,
// note). Data is the record's opaque portal payload: the engine never
// interprets it, it rides along for the frontend. RefreshedAt is when the
// record was last fetched from its lookup.
type Record struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Data        string    `json:"data,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Lookup resolves mention queries. An empty query returns a recent or
// default record set. Implementations must be safe for concurrent use.
type Lookup interface {
	Search(ctx context.Context, query string) ([]Record, error)
	Refresh(ctx context.Context, id, kind string) (*Record, bool, error)
}

// TriggerBoundary reports whether a trigger typed after prev starts a
// mention. prev is zero at the start of a block.
func TriggerBoundary(prev rune) bool {
	switch prev {
	case 0, ' ', '\t', '\n', '(', '[', '{':
		return true
	}
	return false
}
