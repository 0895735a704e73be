// Package selection models where editing is currently anchored: an anchor
// point and a focus point, each a (node-path, offset) pair. Selections are
// transient; they are revalidated against the current tree before every
// command and fall back to "no selection" when their path no longer exists.
package selection

import (
	"github.com/starford/quill/internal/editor/node"
)

// Point addresses a rune offset inside a text leaf, identified by its
// child-index path from the document root.
type Point struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

// Selection spans from Anchor to Focus. A collapsed selection (anchor equals
// focus) is a plain cursor.
type Selection struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Collapsed reports whether anchor and focus address the same position.
func (s Selection) Collapsed() bool {
	return s.Anchor.Offset == s.Focus.Offset && pathEqual(s.Anchor.Path, s.Focus.Path)
}

// Caret returns a collapsed selection at the given point.
func Caret(p Point) Selection {
	return Selection{Anchor: p, Focus: p}
}

// Ordered returns the selection's endpoints in document order.
func (s Selection) Ordered() (start, end Point) {
	if comparePoints(s.Anchor, s.Focus) <= 0 {
		return s.Anchor, s.Focus
	}
	return s.Focus, s.Anchor
}

// CollapseToStart returns the selection collapsed to its document-order start.
func (s Selection) CollapseToStart() Selection {
	start, _ := s.Ordered()
	return Caret(start)
}

// CollapseToEnd returns the selection collapsed to its document-order end.
func (s Selection) CollapseToEnd() Selection {
	_, end := s.Ordered()
	return Caret(end)
}

func pathEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// comparePoints orders two points by path, then offset.
func comparePoints(a, b Point) int {
	n := len(a.Path)
	if len(b.Path) < n {
		n = len(b.Path)
	}
	for i := 0; i < n; i++ {
		if a.Path[i] != b.Path[i] {
			if a.Path[i] < b.Path[i] {
				return -1
			}
			return 1
		}
	}
	if len(a.Path) != len(b.Path) {
		if len(a.Path) < len(b.Path) {
			return -1
		}
		return 1
	}
	if a.Offset != b.Offset {
		if a.Offset < b.Offset {
			return -1
		}
		return 1
	}
	return 0
}

// Resolve validates a selection against the current tree. Offsets are
// clamped into the addressed text leaf; a point whose path is gone or does
// not land on a text leaf invalidates the whole selection.
func Resolve(root *node.Node, s Selection) (Selection, bool) {
	a, ok := resolvePoint(root, s.Anchor)
	if !ok {
		return Selection{}, false
	}
	f, ok := resolvePoint(root, s.Focus)
	if !ok {
		return Selection{}, false
	}
	return Selection{Anchor: a, Focus: f}, true
}

func resolvePoint(root *node.Node, p Point) (Point, bool) {
	n := node.Resolve(root, p.Path)
	if n == nil || n.Kind != node.Text {
		return Point{}, false
	}
	if l := n.TextLen(); p.Offset > l {
		p.Offset = l
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p, true
}

// PointAt builds a point addressing the given text leaf by identity.
func PointAt(root, leaf *node.Node, offset int) (Point, bool) {
	path := node.PathTo(root, leaf)
	if path == nil || leaf.Kind != node.Text {
		return Point{}, false
	}
	if l := leaf.TextLen(); offset > l {
		offset = l
	}
	if offset < 0 {
		offset = 0
	}
	return Point{Path: path, Offset: offset}, true
}

// Start returns a caret at the first text leaf of the document, the default
// position after load. Save/reload never preserves a selection.
func Start(root *node.Node) (Selection, bool) {
	leaf := node.FirstText(root)
	if leaf == nil {
		return Selection{}, false
	}
	p, ok := PointAt(root, leaf, 0)
	if !ok {
		return Selection{}, false
	}
	return Caret(p), true
}
