// Package node defines the structural document tree used by the editor:
// block nodes, inline mark wrappers, and text leaves. Formatting is
// represented structurally (mark nodes wrapping text runs), never as flags
// on the text nodes themselves.
package node

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind identifies a node variant.
type Kind string

// Node kinds.
const (
	Root         Kind = "root"
	Text         Kind = "text"
	Paragraph    Kind = "paragraph"
	Heading      Kind = "heading"
	Blockquote   Kind = "blockquote"
	CodeBlock    Kind = "code-block"
	BulletList   Kind = "bullet-list"
	NumberedList Kind = "numbered-list"
	ListItem     Kind = "list-item"
	Table        Kind = "table"
	TableRow     Kind = "table-row"
	TableCell    Kind = "table-cell"
	Image        Kind = "image"
	Link         Kind = "link"
	Mention      Kind = "mention"

	Bold          Kind = "bold"
	Italic        Kind = "italic"
	Underline     Kind = "underline"
	Strikethrough Kind = "strikethrough"
	InlineCode    Kind = "inline-code"
)

// Node is one element of the document tree.
//
// Text nodes carry a string payload and no children. All other kinds own an
// ordered child sequence. Attrs holds kind-specific attributes: src/alt for
// images, href/target/rel for links, id/kind/title for mentions.
type Node struct {
	Kind     Kind
	Text     string
	Level    int // heading level 1..6
	Header   bool // table-cell: header cell
	Attrs    map[string]string
	Children []*Node
}

// NewText creates a text leaf.
func NewText(s string) *Node {
	return &Node{Kind: Text, Text: s}
}

// NewBlock creates a node of the given kind with the given children.
// A block created with no children receives an empty text child so the
// at-least-one-child invariant holds from birth.
func NewBlock(kind Kind, children ...*Node) *Node {
	if len(children) == 0 {
		children = []*Node{NewText("")}
	}
	return &Node{Kind: kind, Children: children}
}

// NewHeading creates a heading block with the given level (clamped to 1..6).
func NewHeading(level int, children ...*Node) *Node {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	n := NewBlock(Heading, children...)
	n.Level = level
	return n
}

// NewRoot creates a document root. An empty document holds one empty paragraph.
func NewRoot(blocks ...*Node) *Node {
	if len(blocks) == 0 {
		blocks = []*Node{NewBlock(Paragraph)}
	}
	return &Node{Kind: Root, Children: blocks}
}

// NewMention creates a visual mention node displaying "@title".
func NewMention(id, kind, title string) *Node {
	return &Node{
		Kind:  Mention,
		Attrs: map[string]string{"id": id, "kind": kind, "title": title},
	}
}

// NewImage creates an image node.
func NewImage(src, alt string) *Node {
	return &Node{Kind: Image, Attrs: map[string]string{"src": src, "alt": alt}}
}

// NewLink creates a link wrapping the given children.
func NewLink(href string, children ...*Node) *Node {
	n := NewBlock(Link, children...)
	n.Attrs = map[string]string{"href": href, "target": "_blank", "rel": "noopener noreferrer"}
	return n
}

// Attr returns the named attribute or the empty string.
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SetAttr sets an attribute, allocating the map on first use.
func (n *Node) SetAttr(key, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
}

// IsMark reports whether kind is an inline formatting wrapper.
func IsMark(kind Kind) bool {
	switch kind {
	case Bold, Italic, Underline, Strikethrough, InlineCode:
		return true
	}
	return false
}

// IsBlock reports whether kind is a block-level container.
func IsBlock(kind Kind) bool {
	switch kind {
	case Paragraph, Heading, Blockquote, CodeBlock, BulletList, NumberedList,
		ListItem, Table, TableRow, TableCell:
		return true
	}
	return false
}

// IsInline reports whether kind lives inside a block's inline content.
func IsInline(kind Kind) bool {
	return kind == Text || kind == Link || kind == Mention || IsMark(kind)
}

// MarkKinds lists the inline format wrappers in canonical order.
var MarkKinds = []Kind{Bold, Italic, Underline, Strikethrough, InlineCode}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	c := &Node{Kind: n.Kind, Text: n.Text, Level: n.Level, Header: n.Header}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Walk visits n and every descendant depth-first. Returning false from fn
// stops descent into that subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, ch := range n.Children {
		ch.Walk(fn)
	}
}

// TextContent concatenates the text of every leaf under n.
// Mention nodes contribute their display form "@title".
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		switch c.Kind {
		case Text:
			sb.WriteString(c.Text)
		case Mention:
			sb.WriteString("@" + c.Attr("title"))
		}
		return true
	})
	return sb.String()
}

// TextLen returns the rune length of a text leaf (0 for other kinds).
func (n *Node) TextLen() int {
	if n.Kind != Text {
		return 0
	}
	return utf8.RuneCountInString(n.Text)
}

// Resolve follows a child-index path from n and returns the addressed node,
// or nil when the path no longer exists in the tree.
func Resolve(n *Node, path []int) *Node {
	cur := n
	for _, i := range path {
		if cur == nil || i < 0 || i >= len(cur.Children) {
			return nil
		}
		cur = cur.Children[i]
	}
	return cur
}

// PathTo returns the child-index path from root to target (by identity),
// or nil when target is not in the tree. The root itself has the empty path.
func PathTo(root, target *Node) []int {
	if root == target {
		return []int{}
	}
	for i, ch := range root.Children {
		if p := PathTo(ch, target); p != nil {
			return append([]int{i}, p...)
		}
	}
	return nil
}

// ParentOf returns target's parent and its index among the parent's
// children, or (nil, -1) when target is the root or not in the tree.
func ParentOf(root, target *Node) (*Node, int) {
	for i, ch := range root.Children {
		if ch == target {
			return root, i
		}
		if p, j := ParentOf(ch, target); p != nil {
			return p, j
		}
	}
	return nil, -1
}

// Ancestors returns the chain of nodes from root down to (excluding) target.
// Returns nil when target is not under root.
func Ancestors(root, target *Node) []*Node {
	if root == target {
		return []*Node{}
	}
	for _, ch := range root.Children {
		if chain := Ancestors(ch, target); chain != nil {
			return append([]*Node{root}, chain...)
		}
	}
	return nil
}

// InsertChild inserts ch at index i, clamping i into range.
func (n *Node) InsertChild(i int, ch *Node) {
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = ch
}

// RemoveChild removes the child at index i.
func (n *Node) RemoveChild(i int) {
	if i < 0 || i >= len(n.Children) {
		return
	}
	n.Children = append(n.Children[:i], n.Children[i+1:]...)
}

// ReplaceChild swaps the child at index i for repl, keeping position.
func (n *Node) ReplaceChild(i int, repl *Node) {
	if i < 0 || i >= len(n.Children) {
		return
	}
	n.Children[i] = repl
}

// SpliceChildren replaces the child at index i with the given nodes.
func (n *Node) SpliceChildren(i int, repl ...*Node) {
	if i < 0 || i >= len(n.Children) {
		return
	}
	rest := append([]*Node{}, n.Children[i+1:]...)
	n.Children = append(n.Children[:i], repl...)
	n.Children = append(n.Children, rest...)
}

// SplitText splits a text leaf at the given rune offset and returns the two
// halves. Offsets are clamped. The original node keeps the left half; a new
// node is returned for the right half (not yet attached to the tree).
func (n *Node) SplitText(offset int) (*Node, *Node) {
	runes := []rune(n.Text)
	if offset < 0 {
		offset = 0
	}
	if offset > len(runes) {
		offset = len(runes)
	}
	right := NewText(string(runes[offset:]))
	n.Text = string(runes[:offset])
	return n, right
}

// FirstText returns the first text leaf under n in document order.
func FirstText(n *Node) *Node {
	if n.Kind == Text {
		return n
	}
	for _, ch := range n.Children {
		if t := FirstText(ch); t != nil {
			return t
		}
	}
	return nil
}

// LastText returns the last text leaf under n in document order.
func LastText(n *Node) *Node {
	if n.Kind == Text {
		return n
	}
	for i := len(n.Children) - 1; i >= 0; i-- {
		if t := LastText(n.Children[i]); t != nil {
			return t
		}
	}
	return nil
}

// TextLeaves returns every text leaf under n in document order.
func TextLeaves(n *Node) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Kind == Text {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Normalize repairs the tree after a mutation:
//   - every block/mark/link node gets an empty text child if it has none
//     (image and mention nodes are leaves and exempt)
//   - adjacent sibling text leaves are merged
//   - empty mark wrappers whose text content is empty and that have a
//     non-empty sibling are dropped
//
// The at-least-one-child invariant prevents the rendering surface from
// collapsing a block into a non-editable gap.
func Normalize(n *Node) {
	for _, ch := range n.Children {
		Normalize(ch)
	}

	if n.Kind == Image || n.Kind == Mention || n.Kind == Text {
		return
	}

	// Drop marks that contain no text at all, unless they are the only child.
	if len(n.Children) > 1 {
		kept := n.Children[:0]
		for _, ch := range n.Children {
			if IsMark(ch.Kind) && ch.TextContent() == "" && !containsLeafObject(ch) {
				continue
			}
			kept = append(kept, ch)
		}
		n.Children = kept
	}

	// Merge adjacent wrappers of the same mark kind, then adjacent text leaves.
	merged := make([]*Node, 0, len(n.Children))
	for _, ch := range n.Children {
		if len(merged) > 0 {
			prev := merged[len(merged)-1]
			if ch.Kind == Text && prev.Kind == Text {
				prev.Text += ch.Text
				continue
			}
			if IsMark(ch.Kind) && ch.Kind == prev.Kind {
				prev.Children = append(prev.Children, ch.Children...)
				mergeTextChildren(prev)
				continue
			}
		}
		merged = append(merged, ch)
	}
	n.Children = merged

	// Drop empty text leaves sitting next to non-empty siblings.
	if len(n.Children) > 1 {
		kept := n.Children[:0]
		for _, ch := range n.Children {
			if ch.Kind == Text && ch.Text == "" {
				continue
			}
			kept = append(kept, ch)
		}
		if len(kept) > 0 {
			n.Children = kept
		}
	}

	if len(n.Children) == 0 {
		n.Children = []*Node{NewText("")}
	}
}

// mergeTextChildren merges adjacent text leaves among n's children.
func mergeTextChildren(n *Node) {
	merged := n.Children[:0]
	for _, ch := range n.Children {
		if ch.Kind == Text && len(merged) > 0 && merged[len(merged)-1].Kind == Text {
			merged[len(merged)-1].Text += ch.Text
			continue
		}
		merged = append(merged, ch)
	}
	n.Children = merged
}

// containsLeafObject reports whether the subtree holds an image or mention.
func containsLeafObject(n *Node) bool {
	found := false
	n.Walk(func(c *Node) bool {
		if c.Kind == Image || c.Kind == Mention {
			found = true
			return false
		}
		return !found
	})
	return found
}

// BlockTypeName returns the command-facing name of a block kind:
// "paragraph", "heading-2", "blockquote", "code-block", ...
func BlockTypeName(n *Node) string {
	if n.Kind == Heading {
		level := n.Level
		if level < 1 {
			level = 1
		}
		return fmt.Sprintf("heading-%d", level)
	}
	return string(n.Kind)
}
