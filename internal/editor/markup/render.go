// Package markup serializes the document tree to and from its persisted
// HTML-subset form. Render and Parse form a round-trip pair: parsing markup
// this package rendered yields a semantically identical tree. Foreign
// markup is parsed best-effort; unknown elements degrade to their text
// content rather than being rejected.
package markup

import (
	"html"
	"strings"

	"github.com/starford/quill/internal/editor/node"
)

// Render serializes the tree rooted at root (a node.Root) to markup.
// Visual mention nodes are converted to their durable text tokens.
func Render(root *node.Node) string {
	var sb strings.Builder
	for _, block := range root.Children {
		renderNode(&sb, block)
	}
	return sb.String()
}

func renderNode(sb *strings.Builder, n *node.Node) {
	switch n.Kind {
	case node.Text:
		sb.WriteString(html.EscapeString(escapeTokenText(n.Text)))

	case node.Mention:
		sb.WriteString(html.EscapeString(MentionToken(n.Attr("kind"), n.Attr("id"), n.Attr("title"))))

	case node.Paragraph:
		renderWrapped(sb, n, "p")
	case node.Heading:
		tag := headingTag(n.Level)
		sb.WriteString("<" + tag + ">")
		renderChildren(sb, n)
		sb.WriteString("</" + tag + ">")
	case node.Blockquote:
		renderWrapped(sb, n, "blockquote")
	case node.CodeBlock:
		sb.WriteString("<pre>")
		renderChildren(sb, n)
		sb.WriteString("</pre>")
	case node.BulletList:
		renderWrapped(sb, n, "ul")
	case node.NumberedList:
		renderWrapped(sb, n, "ol")
	case node.ListItem:
		renderWrapped(sb, n, "li")
	case node.Table:
		renderWrapped(sb, n, "table")
	case node.TableRow:
		renderWrapped(sb, n, "tr")
	case node.TableCell:
		tag := "td"
		if n.Header {
			tag = "th"
		}
		sb.WriteString("<" + tag + ">")
		renderChildren(sb, n)
		sb.WriteString("</" + tag + ">")

	case node.Image:
		sb.WriteString(`<img src="` + html.EscapeString(n.Attr("src")) + `" alt="` + html.EscapeString(n.Attr("alt")) + `">`)

	case node.Link:
		sb.WriteString(`<a href="` + html.EscapeString(n.Attr("href")) + `"`)
		if t := n.Attr("target"); t != "" {
			sb.WriteString(` target="` + html.EscapeString(t) + `"`)
		}
		if rel := n.Attr("rel"); rel != "" {
			sb.WriteString(` rel="` + html.EscapeString(rel) + `"`)
		}
		sb.WriteString(">")
		renderChildren(sb, n)
		sb.WriteString("</a>")

	case node.Bold:
		renderWrapped(sb, n, "strong")
	case node.Italic:
		renderWrapped(sb, n, "em")
	case node.Underline:
		renderWrapped(sb, n, "u")
	case node.Strikethrough:
		renderWrapped(sb, n, "s")
	case node.InlineCode:
		renderWrapped(sb, n, "code")

	default:
		renderChildren(sb, n)
	}
}

func renderWrapped(sb *strings.Builder, n *node.Node, tag string) {
	sb.WriteString("<" + tag + ">")
	renderChildren(sb, n)
	sb.WriteString("</" + tag + ">")
}

func renderChildren(sb *strings.Builder, n *node.Node) {
	for _, ch := range n.Children {
		renderNode(sb, ch)
	}
}

func headingTag(level int) string {
	if level < 1 || level > 6 {
		level = 1
	}
	return [...]string{"h1", "h2", "h3", "h4", "h5", "h6"}[level-1]
}
