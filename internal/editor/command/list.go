package command

import (
	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

func parseListKind(value any) (node.Kind, bool) {
	switch value {
	case "ul":
		return node.BulletList, true
	case "ol":
		return node.NumberedList, true
	}
	return "", false
}

// toggleList wraps the anchor block in a new single-item list of the
// requested kind, or, when the anchor is already inside a list of that
// kind, unwraps the whole list back into sibling blocks (one per former
// item). Inside a list of the other kind the list is converted in place.
// List items keep their content's block identity: a heading stays a heading
// inside a list item.
func toggleList(ctx *Context, value any) bool {
	kind, ok := parseListKind(value)
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

	startOff, okS := selection.GlobalOffset(ctx.Root, sel.Anchor)
	endOff, okE := selection.GlobalOffset(ctx.Root, sel.Focus)
	if !okS || !okE {
		return false
	}

	list := listAncestor(ctx.Root, leaf)
	switch {
	case list != nil && list.Kind == kind:
		unwrapList(ctx.Root, list)
	case list != nil:
		list.Kind = kind
	default:
		block, idx := ctx.topBlockOf(leaf)
		if block == nil {
			return false
		}
		item := &node.Node{Kind: node.ListItem, Children: []*node.Node{block}}
		ctx.Root.ReplaceChild(idx, &node.Node{Kind: kind, Children: []*node.Node{item}})
	}

	ctx.restoreByOffsets(startOff, endOff)
	return true
}

// listAncestor returns the nearest enclosing list node, or nil.
func listAncestor(root, leaf *node.Node) *node.Node {
	chain := node.Ancestors(root, leaf)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Kind == node.BulletList || chain[i].Kind == node.NumberedList {
			return chain[i]
		}
	}
	return nil
}

// unwrapList replaces a list with its items' block children as siblings.
func unwrapList(root, list *node.Node) {
	parent, idx := node.ParentOf(root, list)
	if parent == nil {
		return
	}
	var blocks []*node.Node
	for _, item := range list.Children {
		if item.Kind != node.ListItem {
			continue
		}
		for _, ch := range item.Children {
			if node.IsBlock(ch.Kind) {
				blocks = append(blocks, ch)
			} else {
				// Bare inline content in an item becomes a paragraph.
				blocks = append(blocks, node.NewBlock(node.Paragraph, ch))
			}
		}
	}
	if len(blocks) == 0 {
		blocks = []*node.Node{node.NewBlock(node.Paragraph)}
	}
	parent.SpliceChildren(idx, blocks...)
}
