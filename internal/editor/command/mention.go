package command

import (
	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// MentionSpec commits a chosen suggestion into the tree. SpanLen is the
// rune length of the trigger character plus the typed query, which the
// mention replaces.
type MentionSpec struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	SpanLen int    `json:"span_len"`
}

func parseMentionSpec(value any) (MentionSpec, bool) {
	switch v := value.(type) {
	case MentionSpec:
		return v, true
	case *MentionSpec:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		spec := MentionSpec{}
		if s, ok := v["id"].(string); ok {
			spec.ID = s
		}
		if s, ok := v["kind"].(string); ok {
			spec.Kind = s
		}
		if s, ok := v["title"].(string); ok {
			spec.Title = s
		}
		if n, ok := intValue(v["span_len"]); ok {
			spec.SpanLen = n
		}
		return spec, true
	}
	return MentionSpec{}, false
}

// insertMention replaces the trigger span before the caret with a visual
// mention node plus a trailing space, leaving the caret after the space.
func insertMention(ctx *Context, value any) bool {
	spec, ok := parseMentionSpec(value)
	if !ok || spec.ID == "" || spec.Kind == "" {
		return false
	}
	sel, ok := ctx.currentSelection()
	if !ok || !sel.Collapsed() {
		return false
	}
	leaf := node.Resolve(ctx.Root, sel.Anchor.Path)
	if leaf == nil || leaf.Kind != node.Text {
		return false
	}
	parent, idx := node.ParentOf(ctx.Root, leaf)
	if parent == nil {
		return false
	}

	runes := []rune(leaf.Text)
	off := sel.Anchor.Offset
	if off > len(runes) {
		off = len(runes)
	}
	span := spec.SpanLen
	if span < 0 || span > off {
		span = off
	}

	leaf.Text = string(runes[:off-span])
	tail := node.NewText(" " + string(runes[off:]))
	parent.InsertChild(idx+1, node.NewMention(spec.ID, spec.Kind, spec.Title))
	parent.InsertChild(idx+2, tail)

	node.Normalize(ctx.Root)
	p, ok := selection.PointAt(ctx.Root, tail, 1)
	if !ok {
		return false
	}
	ctx.Surface.SetSelection(selection.Caret(p))
	return true
}
