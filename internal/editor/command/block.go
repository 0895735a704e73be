package command

import (
	"strconv"
	"strings"

	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// parseBlockType maps a command value like "paragraph", "heading-3",
// "blockquote" or "code-block" to a node kind and heading level.
func parseBlockType(value any) (node.Kind, int, bool) {
	s, ok := value.(string)
	if !ok {
		return "", 0, false
	}
	switch s {
	case "paragraph":
		return node.Paragraph, 0, true
	case "blockquote":
		return node.Blockquote, 0, true
	case "code-block":
		return node.CodeBlock, 0, true
	}
	if rest, found := strings.CutPrefix(s, "heading-"); found {
		level, err := strconv.Atoi(rest)
		if err == nil && level >= 1 && level <= 6 {
			return node.Heading, level, true
		}
	}
	return "", 0, false
}

// housingBlock returns the nearest paragraph-like ancestor of the leaf, the
// block a block-type change replaces. Structural containers (list items,
// table cells) are not themselves eligible targets.
func housingBlock(root, leaf *node.Node) *node.Node {
	chain := node.Ancestors(root, leaf)
	for i := len(chain) - 1; i >= 0; i-- {
		switch chain[i].Kind {
		case node.Paragraph, node.Heading, node.Blockquote, node.CodeBlock:
			return chain[i]
		}
	}
	return nil
}

// setBlockType replaces the block housing the selection anchor with a block
// of the target type, preserving inline content. Converting to a code block
// wraps the content in the code-run marker; converting away unwraps it.
func setBlockType(ctx *Context, value any) bool {
	kind, level, ok := parseBlockType(value)
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
	block := housingBlock(ctx.Root, leaf)
	if block == nil {
		return false
	}
	if block.Kind == kind && (kind != node.Heading || block.Level == level) {
		return true // already the requested type
	}

	startOff, okS := selection.GlobalOffset(ctx.Root, sel.Anchor)
	endOff, okE := selection.GlobalOffset(ctx.Root, sel.Focus)
	if !okS || !okE {
		return false
	}

	inline := inlineContentOf(block)
	repl := &node.Node{Kind: kind, Level: level, Children: inline}
	if kind == node.CodeBlock {
		repl.Children = []*node.Node{{Kind: node.InlineCode, Children: inline}}
	}

	parent, idx := node.ParentOf(ctx.Root, block)
	if parent == nil {
		return false
	}
	parent.ReplaceChild(idx, repl)

	ctx.restoreByOffsets(startOff, endOff)
	return true
}

// inlineContentOf extracts a block's inline children, unwrapping the
// code-run marker of a code block.
func inlineContentOf(block *node.Node) []*node.Node {
	children := block.Children
	if block.Kind == node.CodeBlock && len(children) == 1 && children[0].Kind == node.InlineCode {
		children = children[0].Children
	}
	if len(children) == 0 {
		children = []*node.Node{node.NewText("")}
	}
	return children
}

// CurrentBlockType names the block type housing the selection anchor
// ("paragraph", "heading-2", ...), or "" when there is no valid selection.
func CurrentBlockType(root *node.Node, surface selection.Surface) string {
	raw, ok := surface.Selection()
	if !ok {
		return ""
	}
	sel, valid := selection.Resolve(root, raw)
	if !valid {
		return ""
	}
	leaf := node.Resolve(root, sel.Anchor.Path)
	if leaf == nil {
		return ""
	}
	block := housingBlock(root, leaf)
	if block == nil {
		return ""
	}
	return node.BlockTypeName(block)
}
