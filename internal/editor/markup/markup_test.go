package markup

import (
	"strings"
	"testing"

	"github.com/starford/quill/internal/editor/node"
)

// Canonical markup must survive a Parse/Render round trip byte for byte.
func TestRoundTrip(t *testing.T) {
	tests := []string{
		"<p></p>",
		"<p>hello world</p>",
		"<p>a &amp; b &lt;c&gt;</p>",
		"<p>hello <strong>bold</strong> world</p>",
		"<p><em><strong>nested</strong></em></p>",
		"<p><u>under</u> and <s>gone</s></p>",
		"<h1>Top</h1>",
		"<h2>Title</h2><p>body</p>",
		"<blockquote>said so</blockquote>",
		"<pre><code>x = 1</code></pre>",
		"<ul><li><p>one</p></li><li><p>two</p></li></ul>",
		"<ol><li><p>first</p></li></ol>",
		"<ul><li><h2>Heading item</h2></li></ul>",
		"<table><tr><th>H</th><td>c</td></tr><tr><td>a</td><td>b</td></tr></table>",
		`<p><a href="https://example.com" target="_blank" rel="noopener noreferrer">link</a></p>`,
		`<p>before<img src="/attachments/a.png" alt="a">after</p>`,
		"<p>see @[assignment:a1:Essay] now</p>",
		`<p>@\[broken token</p>`,
	}
	for _, m := range tests {
		root, err := Parse(m)
		if err != nil {
			t.Errorf("Parse(%q): %v", m, err)
			continue
		}
		if got := Render(root); got != m {
			t.Errorf("round trip of %q = %q", m, got)
		}
	}
}

func TestParseBareTextGetsParagraph(t *testing.T) {
	root, err := Parse("hello")
	if err != nil {
		t.Fatal(err)
	}
	if got := Render(root); got != "<p>hello</p>" {
		t.Errorf("Render = %q", got)
	}
}

func TestParseEmptyInput(t *testing.T) {
	root, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if got := Render(root); got != "<p></p>" {
		t.Errorf("empty document = %q, want <p></p>", got)
	}
}

func TestParseStripsScripting(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<p>x</p><script>alert(1)</script>", "<p>x</p>"},
		{`<p onclick="evil()">y</p>`, "<p>y</p>"},
		{`<p><a href="javascript:evil()">z</a></p>`, "<p><a href=\"\" target=\"_blank\" rel=\"noopener noreferrer\">z</a></p>"},
	}
	for _, tt := range tests {
		root, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got := Render(root); got != tt.want {
			t.Errorf("Render(Parse(%q)) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseForeignMarkupDegrades(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		// Transparent containers recurse in block context.
		{"<div><h1>T</h1><span>tail</span></div>", "<h1>T</h1><p>tail</p>"},
		// Unknown inline elements keep their text.
		{"<p><kbd>Ctrl</kbd>+C</p>", "<p>Ctrl+C</p>"},
		// Legacy synonyms map to the canonical marks.
		{"<p><b>x</b><i>y</i><del>z</del></p>", "<p><strong>x</strong><em>y</em><s>z</s></p>"},
		// thead/tbody flatten, header-ness survives per cell.
		{"<table><thead><tr><th>H</th></tr></thead><tbody><tr><td>c</td></tr></tbody></table>",
			"<table><tr><th>H</th></tr><tr><td>c</td></tr></table>"},
	}
	for _, tt := range tests {
		root, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got := Render(root); got != tt.want {
			t.Errorf("Render(Parse(%q)) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBreakBecomesNewline(t *testing.T) {
	root, err := Parse("<p>a<br>b</p>")
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Children[0].TextContent(); got != "a\nb" {
		t.Errorf("text = %q", got)
	}
}

func TestMentionTokenEscaping(t *testing.T) {
	title := `A:B]C\D`
	tok := MentionToken("note", "n1", title)
	if tok != `@[note:n1:A\:B\]C\\D]` {
		t.Fatalf("token = %q", tok)
	}

	root := node.NewRoot(node.NewBlock(node.Paragraph, node.NewMention("n1", "note", title)))
	rendered := Render(root)

	back, err := Parse(rendered)
	if err != nil {
		t.Fatal(err)
	}
	var m *node.Node
	back.Walk(func(n *node.Node) bool {
		if n.Kind == node.Mention {
			m = n
			return false
		}
		return true
	})
	if m == nil {
		t.Fatal("mention lost in round trip")
	}
	if m.Attr("title") != title || m.Attr("id") != "n1" || m.Attr("kind") != "note" {
		t.Errorf("mention attrs = %v", m.Attrs)
	}
}

// Typed text that happens to look like a mention token must never come
// back from disk as a mention: Render escapes the "@[" opener so only
// real mention nodes round-trip as tokens.
func TestLiteralTokenTextStaysText(t *testing.T) {
	const text = "fee: @[assignment:a1:Math HW]"
	root := node.NewRoot(node.NewBlock(node.Paragraph, node.NewText(text)))

	rendered := Render(root)
	if want := `<p>fee: @\[assignment:a1:Math HW]</p>`; rendered != want {
		t.Fatalf("Render = %q, want %q", rendered, want)
	}

	back, err := Parse(rendered)
	if err != nil {
		t.Fatal(err)
	}
	back.Walk(func(n *node.Node) bool {
		if n.Kind == node.Mention {
			t.Fatalf("plain text parsed back as mention %q", n.Attr("id"))
		}
		return true
	})
	if got := back.Children[0].TextContent(); got != text {
		t.Errorf("text after round trip = %q, want %q", got, text)
	}
}

func TestTokenLikeTextRoundTrip(t *testing.T) {
	tests := []string{
		"fee: @[assignment:a1:Math HW]",
		`@\[already escaped]`,
		"email @[user",
		"@@[x",
		"trailing @",
	}
	for _, text := range tests {
		root := node.NewRoot(node.NewBlock(node.Paragraph, node.NewText(text)))
		back, err := Parse(Render(root))
		if err != nil {
			t.Fatalf("Parse(Render(%q)): %v", text, err)
		}
		var mentions int
		back.Walk(func(n *node.Node) bool {
			if n.Kind == node.Mention {
				mentions++
			}
			return true
		})
		if mentions != 0 {
			t.Errorf("%q produced %d mention node(s)", text, mentions)
		}
		if got := back.Children[0].TextContent(); got != text {
			t.Errorf("round trip of %q = %q", text, got)
		}
	}
}

func TestMentionBesideLiteralToken(t *testing.T) {
	root := node.NewRoot(node.NewBlock(node.Paragraph,
		node.NewText("cite @[note:n9:x] as "),
		node.NewMention("n9", "note", "x"),
	))
	back, err := Parse(Render(root))
	if err != nil {
		t.Fatal(err)
	}
	var mentions int
	back.Walk(func(n *node.Node) bool {
		if n.Kind == node.Mention {
			mentions++
		}
		return true
	})
	if mentions != 1 {
		t.Fatalf("mention count = %d, want only the real node", mentions)
	}
	if got := back.Children[0].TextContent(); got != "cite @[note:n9:x] as @x" {
		t.Errorf("text = %q", got)
	}
}

func TestMalformedMentionTokensStayLiteral(t *testing.T) {
	tests := []string{
		"@[only:two]",
		"@[:missing:kind]",
		"@[note::missing-id]",
		"@[note:n1:unterminated",
		"@[note:n1:line\nbreak]",
	}
	for _, in := range tests {
		out := splitMentionText(in)
		for _, n := range out {
			if n.Kind == node.Mention {
				t.Errorf("%q parsed as mention", in)
			}
		}
	}
}

func TestSplitMentionTextMixedRun(t *testing.T) {
	out := splitMentionText("see @[assignment:a1:Essay] and @[note:n2:Plan] today")
	var kinds []node.Kind
	for _, n := range out {
		kinds = append(kinds, n.Kind)
	}
	want := []node.Kind{node.Text, node.Mention, node.Text, node.Mention, node.Text}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if out[1].Attr("id") != "a1" || out[3].Attr("id") != "n2" {
		t.Errorf("mention ids = %q, %q", out[1].Attr("id"), out[3].Attr("id"))
	}
}

func TestRenderEscapesTextContent(t *testing.T) {
	root := node.NewRoot(node.NewBlock(node.Paragraph, node.NewText(`<script>&"`)))
	got := Render(root)
	if strings.Contains(got, "<script>") {
		t.Fatalf("unescaped markup in output: %q", got)
	}
	if got != "<p>&lt;script&gt;&amp;&#34;</p>" {
		t.Errorf("Render = %q", got)
	}
}
