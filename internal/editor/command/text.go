package command

import (
	"unicode/utf8"

	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// insertText inserts a string at the caret, replacing the selected text
// first when the selection spans a range. This is the typing primitive the
// input path feeds. The caret is re-anchored by global offset so the
// post-command normalization pass cannot leave it dangling.
func insertText(ctx *Context, value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	sel, ok := ctx.currentSelection()
	if !ok {
		return false
	}

	if !sel.Collapsed() {
		caret, ok := deleteRange(ctx, sel)
		if !ok {
			return false
		}
		sel = selection.Caret(caret)
	}

	base, ok := selection.GlobalOffset(ctx.Root, sel.Anchor)
	if !ok {
		return false
	}
	leaf := node.Resolve(ctx.Root, sel.Anchor.Path)
	if leaf == nil || leaf.Kind != node.Text {
		return false
	}
	runes := []rune(leaf.Text)
	off := sel.Anchor.Offset
	if off > len(runes) {
		off = len(runes)
	}
	leaf.Text = string(runes[:off]) + s + string(runes[off:])

	node.Normalize(ctx.Root)
	p, ok := selection.PointAtOffset(ctx.Root, base+utf8.RuneCountInString(s), true)
	if !ok {
		return false
	}
	ctx.Surface.SetSelection(selection.Caret(p))
	return true
}

// deleteBackward removes the rune before the caret, or the selected range.
// At the very start of a block it is a no-op failure (block merging is the
// surface's concern).
func deleteBackward(ctx *Context, _ any) bool {
	sel, ok := ctx.currentSelection()
	if !ok {
		return false
	}

	if !sel.Collapsed() {
		caret, ok := deleteRange(ctx, sel)
		if !ok {
			return false
		}
		ctx.Surface.SetSelection(selection.Caret(caret))
		return true
	}

	if sel.Anchor.Offset == 0 {
		return false
	}
	base, ok := selection.GlobalOffset(ctx.Root, sel.Anchor)
	if !ok {
		return false
	}
	leaf := node.Resolve(ctx.Root, sel.Anchor.Path)
	if leaf == nil || leaf.Kind != node.Text {
		return false
	}
	runes := []rune(leaf.Text)
	off := sel.Anchor.Offset
	if off > len(runes) {
		off = len(runes)
	}
	leaf.Text = string(runes[:off-1]) + string(runes[off:])

	node.Normalize(ctx.Root)
	p, ok := selection.PointAtOffset(ctx.Root, base-1, true)
	if !ok {
		return false
	}
	ctx.Surface.SetSelection(selection.Caret(p))
	return true
}

// deleteRange clears the text content of the selected range and returns the
// caret position at the join point. Leaf objects (images, mentions) inside
// the range are left in place; removing them is an explicit command.
func deleteRange(ctx *Context, sel selection.Selection) (selection.Point, bool) {
	start, end := sel.Ordered()
	startOff, okS := selection.GlobalOffset(ctx.Root, start)
	if !okS {
		return selection.Point{}, false
	}
	ranges := leavesInRange(ctx.Root, start, end)
	for _, lr := range ranges {
		runes := []rune(lr.Leaf.Text)
		from, to := lr.From, lr.To
		if to > len(runes) {
			to = len(runes)
		}
		if from >= to {
			continue
		}
		lr.Leaf.Text = string(runes[:from]) + string(runes[to:])
	}
	node.Normalize(ctx.Root)
	return selection.PointAtOffset(ctx.Root, startOff, true)
}
