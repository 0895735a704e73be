package selection

import (
	"github.com/starford/quill/internal/editor/node"
)

// Global offsets address a position by its absolute rune offset over the
// document's text leaves in document order. Structural mutations that leave
// the text content untouched (format toggles, block-type changes, list
// wrapping) preserve global offsets, which makes them the stable coordinate
// system for re-anchoring a selection after such a mutation.

// GlobalOffset converts a point into its absolute rune offset. Returns
// false when the point does not address a text leaf of the tree.
func GlobalOffset(root *node.Node, p Point) (int, bool) {
	target := node.Resolve(root, p.Path)
	if target == nil || target.Kind != node.Text {
		return 0, false
	}
	total := 0
	found := false
	for _, leaf := range node.TextLeaves(root) {
		if leaf == target {
			total += p.Offset
			found = true
			break
		}
		total += leaf.TextLen()
	}
	return total, found
}

// PointAtOffset converts an absolute rune offset back into a point.
// leanEnd controls boundary resolution: a position falling exactly between
// two leaves resolves to the end of the earlier leaf when leanEnd is true,
// and to the start of the later leaf otherwise.
func PointAtOffset(root *node.Node, off int, leanEnd bool) (Point, bool) {
	if off < 0 {
		off = 0
	}
	var last *node.Node
	cum := 0
	for _, leaf := range node.TextLeaves(root) {
		l := leaf.TextLen()
		if off < cum+l || (off == cum+l && leanEnd) {
			return PointAt(root, leaf, off-cum)
		}
		cum += l
		last = leaf
	}
	if last == nil {
		return Point{}, false
	}
	return PointAt(root, last, last.TextLen())
}
