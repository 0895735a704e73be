package command

import (
	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// leafRange is the portion [From, To) of a text leaf intersecting the
// current selection, in rune offsets.
type leafRange struct {
	Leaf *node.Node
	From int
	To   int
}

// toggleFormat implements the bold/italic/underline/strikethrough/inline-code
// commands. A collapsed selection is a no-op (formatting-for-next-keystroke
// is a documented limitation). The format is considered active only when
// every text leaf intersecting the range is already inside a wrapper of that
// kind; toggling then unwraps with a boundary-preserving split, otherwise it
// wraps the extracted range contents.
func toggleFormat(ctx *Context, kind node.Kind) bool {
	sel, ok := ctx.currentSelection()
	if !ok || sel.Collapsed() {
		return false
	}
	start, end := sel.Ordered()
	startOff, okS := selection.GlobalOffset(ctx.Root, start)
	endOff, okE := selection.GlobalOffset(ctx.Root, end)
	if !okS || !okE || startOff == endOff {
		return false
	}

	ranges := leavesInRange(ctx.Root, start, end)
	if len(ranges) == 0 {
		return false
	}

	active := true
	for _, lr := range ranges {
		if markAncestor(ctx.Root, lr.Leaf, kind) == nil {
			active = false
			break
		}
	}

	for _, lr := range ranges {
		mid := isolateRange(ctx.Root, lr)
		if mid == nil {
			continue
		}
		if active {
			liftFromMark(ctx.Root, mid, kind)
		} else if markAncestor(ctx.Root, mid, kind) == nil {
			wrapInMark(ctx.Root, mid, kind)
		}
	}

	ctx.restoreByOffsets(startOff, endOff)
	return true
}

// leavesInRange collects the text leaves intersecting [start, end] in
// document order, with the intersecting rune range per leaf. Zero-width
// intersections at leaf boundaries are skipped.
func leavesInRange(root *node.Node, start, end selection.Point) []leafRange {
	startLeaf := node.Resolve(root, start.Path)
	endLeaf := node.Resolve(root, end.Path)
	if startLeaf == nil || endLeaf == nil {
		return nil
	}

	var out []leafRange
	in := false
	for _, leaf := range node.TextLeaves(root) {
		from, to := 0, leaf.TextLen()
		if leaf == startLeaf {
			in = true
			from = start.Offset
		}
		if !in {
			continue
		}
		if leaf == endLeaf {
			to = end.Offset
		}
		if to > from {
			out = append(out, leafRange{Leaf: leaf, From: from, To: to})
		}
		if leaf == endLeaf {
			break
		}
	}
	return out
}

// markAncestor returns the nearest ancestor wrapper of the given kind, or
// nil. Marks never cross block boundaries, so the walk is cheap.
func markAncestor(root, leaf *node.Node, kind node.Kind) *node.Node {
	chain := node.Ancestors(root, leaf)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Kind == kind {
			return chain[i]
		}
		if node.IsBlock(chain[i].Kind) || chain[i].Kind == node.Root {
			break
		}
	}
	return nil
}

// isolateRange splits a text leaf so the portion [From, To) becomes its own
// leaf within the same parent, and returns it.
func isolateRange(root *node.Node, lr leafRange) *node.Node {
	parent, idx := node.ParentOf(root, lr.Leaf)
	if parent == nil {
		return nil
	}
	runes := []rune(lr.Leaf.Text)
	from, to := lr.From, lr.To
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return nil
	}

	mid := lr.Leaf
	pos := idx
	if from > 0 {
		left := node.NewText(string(runes[:from]))
		mid.Text = string(runes[from:])
		parent.InsertChild(pos, left)
		pos++
		to -= from
		runes = runes[from:]
	}
	if to < len(runes) {
		right := node.NewText(string(runes[to:]))
		mid.Text = string(runes[:to])
		parent.InsertChild(pos+1, right)
	}
	return mid
}

// wrapInMark replaces target in its parent with a new mark wrapper.
func wrapInMark(root, target *node.Node, kind node.Kind) {
	parent, idx := node.ParentOf(root, target)
	if parent == nil {
		return
	}
	parent.ReplaceChild(idx, &node.Node{Kind: kind, Children: []*node.Node{target}})
}

// liftFromMark removes the kind wrapper from around target, splitting the
// wrapper (and any intermediate inline wrappers) at target's boundaries so
// siblings keep their formatting. This is the boundary-preserving split:
// only the extracted portion loses the mark.
func liftFromMark(root, target *node.Node, kind node.Kind) {
	mark := markAncestor(root, target, kind)
	if mark == nil {
		return
	}

	cur := target
	for {
		parent, idx := node.ParentOf(root, cur)
		if parent == nil {
			return
		}

		before := append([]*node.Node{}, parent.Children[:idx]...)
		after := append([]*node.Node{}, parent.Children[idx+1:]...)

		if parent == mark {
			grand, gidx := node.ParentOf(root, mark)
			if grand == nil {
				return
			}
			var repl []*node.Node
			if len(before) > 0 {
				repl = append(repl, wrapperLike(mark, before))
			}
			repl = append(repl, cur)
			if len(after) > 0 {
				repl = append(repl, wrapperLike(mark, after))
			}
			grand.SpliceChildren(gidx, repl...)
			return
		}

		// Intermediate wrapper (another mark or a link): split it around
		// cur, keeping cur inside a copy so its own formatting survives.
		grand, gidx := node.ParentOf(root, parent)
		if grand == nil {
			return
		}
		wrapped := wrapperLike(parent, []*node.Node{cur})
		var repl []*node.Node
		if len(before) > 0 {
			repl = append(repl, wrapperLike(parent, before))
		}
		repl = append(repl, wrapped)
		if len(after) > 0 {
			repl = append(repl, wrapperLike(parent, after))
		}
		grand.SpliceChildren(gidx, repl...)
		cur = wrapped
	}
}

// wrapperLike clones a wrapper node's identity (kind, attrs) around new children.
func wrapperLike(n *node.Node, children []*node.Node) *node.Node {
	c := &node.Node{Kind: n.Kind, Level: n.Level, Header: n.Header, Children: children}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	return c
}

// ActiveFormats reports which mark kinds are active for the selection:
// every ancestor mark for a caret, and the marks covering every intersected
// leaf for a range.
func ActiveFormats(root *node.Node, surface selection.Surface) []string {
	out := []string{}
	raw, ok := surface.Selection()
	if !ok {
		return out
	}
	sel, valid := selection.Resolve(root, raw)
	if !valid {
		return out
	}

	if sel.Collapsed() {
		leaf := node.Resolve(root, sel.Anchor.Path)
		if leaf == nil {
			return out
		}
		for _, kind := range node.MarkKinds {
			if markAncestor(root, leaf, kind) != nil {
				out = append(out, string(kind))
			}
		}
		return out
	}

	start, end := sel.Ordered()
	ranges := leavesInRange(root, start, end)
	if len(ranges) == 0 {
		return out
	}
	for _, kind := range node.MarkKinds {
		all := true
		for _, lr := range ranges {
			if markAncestor(root, lr.Leaf, kind) == nil {
				all = false
				break
			}
		}
		if all {
			out = append(out, string(kind))
		}
	}
	return out
}
