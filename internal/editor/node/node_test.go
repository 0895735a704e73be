package node

import (
	"reflect"
	"testing"
)

func TestNormalizeMergesAdjacentText(t *testing.T) {
	p := &Node{Kind: Paragraph, Children: []*Node{
		NewText("foo"), NewText("bar"), NewText("baz"),
	}}
	Normalize(p)
	if len(p.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(p.Children))
	}
	if p.Children[0].Text != "foobarbaz" {
		t.Errorf("text = %q", p.Children[0].Text)
	}
}

func TestNormalizeMergesAdjacentMarks(t *testing.T) {
	p := &Node{Kind: Paragraph, Children: []*Node{
		NewBlock(Bold, NewText("fo")),
		NewBlock(Bold, NewText("o")),
	}}
	Normalize(p)
	if len(p.Children) != 1 || p.Children[0].Kind != Bold {
		t.Fatalf("children = %+v", p.Children)
	}
	if got := p.Children[0].TextContent(); got != "foo" {
		t.Errorf("merged content = %q", got)
	}
	if len(p.Children[0].Children) != 1 {
		t.Errorf("mark children = %d, want 1 merged text leaf", len(p.Children[0].Children))
	}
}

func TestNormalizeDropsEmptyMarks(t *testing.T) {
	p := &Node{Kind: Paragraph, Children: []*Node{
		NewBlock(Bold, NewText("")),
		NewText("word"),
	}}
	Normalize(p)
	if len(p.Children) != 1 || p.Children[0].Kind != Text {
		t.Fatalf("children = %+v", p.Children)
	}
}

func TestNormalizeKeepsMarkWithMention(t *testing.T) {
	// A mark wrapper with no text but a mention leaf is not empty.
	p := &Node{Kind: Paragraph, Children: []*Node{
		{Kind: Bold, Children: []*Node{NewMention("a1", "assignment", "")}},
		NewText("x"),
	}}
	Normalize(p)
	if len(p.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(p.Children))
	}
	if p.Children[0].Kind != Bold {
		t.Errorf("first child = %v, want bold", p.Children[0].Kind)
	}
}

func TestNormalizeEmptyBlockGetsTextChild(t *testing.T) {
	p := &Node{Kind: Paragraph}
	Normalize(p)
	if len(p.Children) != 1 || p.Children[0].Kind != Text {
		t.Fatalf("children = %+v, want one empty text leaf", p.Children)
	}
}

func TestNormalizeDoesNotTouchLeafObjects(t *testing.T) {
	img := NewImage("/attachments/a.png", "a")
	m := NewMention("n1", "note", "Plan")
	p := &Node{Kind: Paragraph, Children: []*Node{img, m}}
	Normalize(p)
	if len(img.Children) != 0 || len(m.Children) != 0 {
		t.Error("image and mention must stay leaves")
	}
}

func TestPathToResolveRoundTrip(t *testing.T) {
	leaf := NewText("cell")
	root := NewRoot(
		NewBlock(Paragraph, NewText("intro")),
		&Node{Kind: Table, Children: []*Node{
			{Kind: TableRow, Children: []*Node{
				{Kind: TableCell, Children: []*Node{leaf}},
			}},
		}},
	)
	p := PathTo(root, leaf)
	if p == nil {
		t.Fatal("PathTo returned nil")
	}
	if got := Resolve(root, p); got != leaf {
		t.Errorf("Resolve(PathTo(leaf)) = %v, want the leaf", got)
	}
	if Resolve(root, []int{9}) != nil {
		t.Error("out-of-range path should resolve to nil")
	}
	if PathTo(root, NewText("foreign")) != nil {
		t.Error("foreign node should have no path")
	}
}

func TestAncestors(t *testing.T) {
	leaf := NewText("x")
	item := &Node{Kind: ListItem, Children: []*Node{NewBlock(Paragraph, leaf)}}
	list := &Node{Kind: BulletList, Children: []*Node{item}}
	root := NewRoot(list)

	chain := Ancestors(root, leaf)
	want := []Kind{Root, BulletList, ListItem, Paragraph}
	if len(chain) != len(want) {
		t.Fatalf("chain length = %d, want %d", len(chain), len(want))
	}
	for i, n := range chain {
		if n.Kind != want[i] {
			t.Errorf("chain[%d] = %v, want %v", i, n.Kind, want[i])
		}
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		text   string
		offset int
		left   string
		right  string
	}{
		{"hello", 2, "he", "llo"},
		{"hello", 0, "", "hello"},
		{"hello", 5, "hello", ""},
		{"hello", 99, "hello", ""},
		{"héllo", 2, "hé", "llo"},
	}
	for _, tt := range tests {
		n := NewText(tt.text)
		l, r := n.SplitText(tt.offset)
		if l.Text != tt.left || r.Text != tt.right {
			t.Errorf("SplitText(%q, %d) = %q, %q; want %q, %q",
				tt.text, tt.offset, l.Text, r.Text, tt.left, tt.right)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewRoot(NewBlock(Paragraph, NewBlock(Bold, NewText("x")), NewMention("a1", "assignment", "Essay")))
	c := orig.Clone()

	c.Children[0].Children[0].Children[0].Text = "changed"
	c.Children[0].Children[1].SetAttr("title", "Changed")

	if orig.Children[0].Children[0].Children[0].Text != "x" {
		t.Error("clone shares text leaf with original")
	}
	if orig.Children[0].Children[1].Attr("title") != "Essay" {
		t.Error("clone shares attr map with original")
	}
}

func TestTextContentIncludesMentionDisplay(t *testing.T) {
	p := NewBlock(Paragraph, NewText("see "), NewMention("a1", "assignment", "Essay"))
	if got := p.TextContent(); got != "see @Essay" {
		t.Errorf("TextContent = %q", got)
	}
}

func TestBlockTypeName(t *testing.T) {
	tests := []struct {
		n    *Node
		want string
	}{
		{NewBlock(Paragraph), "paragraph"},
		{NewHeading(2), "heading-2"},
		{&Node{Kind: Heading}, "heading-1"},
		{NewBlock(Blockquote), "blockquote"},
		{NewBlock(CodeBlock), "code-block"},
	}
	for _, tt := range tests {
		if got := BlockTypeName(tt.n); got != tt.want {
			t.Errorf("BlockTypeName(%v) = %q, want %q", tt.n.Kind, got, tt.want)
		}
	}
}

func TestComputeMetadata(t *testing.T) {
	root := NewRoot(
		NewBlock(Paragraph, NewText("two words "), NewMention("a1", "assignment", "Essay")),
		NewBlock(Paragraph, NewMention("a1", "assignment", "Essay"), NewText(" and more")),
		NewBlock(Paragraph, NewMention("n2", "note", "Plan")),
	)
	md := ComputeMetadata(root)
	if md.WordCount != 7 {
		t.Errorf("WordCount = %d, want 7", md.WordCount)
	}
	if !reflect.DeepEqual(md.MentionIDs, []string{"a1", "n2"}) {
		t.Errorf("MentionIDs = %v", md.MentionIDs)
	}
}

func TestComputeMetadataEmptyDoc(t *testing.T) {
	md := ComputeMetadata(NewRoot())
	if md.WordCount != 0 || md.CharCount != 0 {
		t.Errorf("empty doc metadata = %+v", md)
	}
	if md.MentionIDs == nil || len(md.MentionIDs) != 0 {
		t.Errorf("MentionIDs = %v, want empty non-nil slice", md.MentionIDs)
	}
}
