package command

import (
	"net/url"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// LinkSpec carries the target and (for collapsed insertion) the link text.
type LinkSpec struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

func parseLinkSpec(value any) (LinkSpec, bool) {
	switch v := value.(type) {
	case LinkSpec:
		return v, true
	case *LinkSpec:
		if v != nil {
			return *v, true
		}
	case map[string]any:
		spec := LinkSpec{}
		if s, ok := v["href"].(string); ok {
			spec.Href = s
		}
		if s, ok := v["text"].(string); ok {
			spec.Text = s
		}
		return spec, true
	case string:
		return LinkSpec{Href: v}, true
	}
	return LinkSpec{}, false
}

// NormalizeHref accepts a bare string if it parses as an absolute URL, or
// as an absolute URL once an https:// prefix is prepended. Anything else is
// a validation failure.
func NormalizeHref(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	cand := raw
	if u, err := url.Parse(cand); err != nil || !u.IsAbs() {
		cand = "https://" + raw
	}
	if err := validation.Validate(cand, is.URL); err != nil {
		return "", false
	}
	u, err := url.Parse(cand)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", false
	}
	return cand, true
}

// insertLink edits the enclosing link in place when the anchor already sits
// inside one; otherwise it wraps the selected text, or inserts a new link
// with the provided text at a collapsed selection. An invalid URL fails the
// command before any mutation.
func insertLink(ctx *Context, value any) bool {
	spec, ok := parseLinkSpec(value)
	if !ok {
		return false
	}
	href, ok := NormalizeHref(spec.Href)
	if !ok {
		return false
	}

	sel, ok := ctx.currentSelection()
	if !ok {
		return false
	}
	leaf := ctx.anchorLeaf(sel)
	if leaf == nil {
		return false
	}

	// Already inside a link: edit target (and text) in place.
	if link := linkAncestor(ctx.Root, leaf); link != nil {
		link.SetAttr("href", href)
		if spec.Text != "" {
			link.Children = []*node.Node{node.NewText(spec.Text)}
			return ctx.caretAtFirstText(link)
		}
		return true
	}

	if sel.Collapsed() {
		text := spec.Text
		if text == "" {
			text = href
		}
		link := node.NewLink(href, node.NewText(text))
		insertInlineAtCaret(ctx, sel.Anchor, link)
		return true
	}

	start, end := sel.Ordered()
	startOff, okS := selection.GlobalOffset(ctx.Root, start)
	endOff, okE := selection.GlobalOffset(ctx.Root, end)
	if !okS || !okE {
		return false
	}
	ranges := leavesInRange(ctx.Root, start, end)
	if len(ranges) == 0 {
		return false
	}
	for _, lr := range ranges {
		mid := isolateRange(ctx.Root, lr)
		if mid == nil {
			continue
		}
		if linkAncestor(ctx.Root, mid) != nil {
			continue
		}
		parent, idx := node.ParentOf(ctx.Root, mid)
		if parent == nil {
			continue
		}
		parent.ReplaceChild(idx, node.NewLink(href, mid))
	}
	ctx.restoreByOffsets(startOff, endOff)
	return true
}

// linkAncestor returns the enclosing link node, or nil.
func linkAncestor(root, leaf *node.Node) *node.Node {
	chain := node.Ancestors(root, leaf)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Kind == node.Link {
			return chain[i]
		}
		if node.IsBlock(chain[i].Kind) || chain[i].Kind == node.Root {
			break
		}
	}
	return nil
}

// insertInlineAtCaret splits the caret's text leaf and inserts the node
// between the halves, leaving the caret at the end of the inserted content.
func insertInlineAtCaret(ctx *Context, caret selection.Point, n *node.Node) {
	base, okBase := selection.GlobalOffset(ctx.Root, caret)
	leaf := node.Resolve(ctx.Root, caret.Path)
	if !okBase || leaf == nil || leaf.Kind != node.Text {
		return
	}
	parent, idx := node.ParentOf(ctx.Root, leaf)
	if parent == nil {
		return
	}
	inserted := utf8.RuneCountInString(n.TextContent())
	_, right := leaf.SplitText(caret.Offset)
	parent.InsertChild(idx+1, n)
	parent.InsertChild(idx+2, right)

	node.Normalize(ctx.Root)
	if p, ok := selection.PointAtOffset(ctx.Root, base+inserted, true); ok {
		ctx.Surface.SetSelection(selection.Caret(p))
	}
}
