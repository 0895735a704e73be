package markup

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/quill/internal/editor/node"
)

// policy is the sanitation allowlist applied before parsing. Everything the
// renderer emits passes through untouched; scripting, event handlers, and
// styling from foreign markup are stripped while their text content is kept.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "pre", "ul", "ol", "li",
		"table", "thead", "tbody", "tr", "th", "td",
		"a", "strong", "b", "em", "i", "u", "s", "del", "code",
		"img", "br", "span", "div",
	)
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowStandardURLs()
	return p
}

// Sanitize strips scripting and unknown attributes from foreign markup.
func Sanitize(m string) string {
	return policy.Sanitize(m)
}

// Parse converts markup into a document tree. Parsing is tolerant: unknown
// elements degrade to their text content, bare inline content at the top
// level is wrapped in a paragraph, and durable mention tokens are converted
// back into visual mention nodes. The returned tree is normalized, so every
// block holds at least one child.
func Parse(m string) (*node.Node, error) {
	doc, err := html.Parse(strings.NewReader(Sanitize(m)))
	if err != nil {
		return nil, fmt.Errorf("markup: parse: %w", err)
	}

	body := findBody(doc)
	if body == nil {
		return node.NewRoot(), nil
	}

	root := &node.Node{Kind: node.Root}
	var pending []*node.Node // inline run awaiting a paragraph wrapper
	flush := func() {
		if len(pending) > 0 {
			root.Children = append(root.Children, node.NewBlock(node.Paragraph, pending...))
			pending = nil
		}
	}

	for c := body.FirstChild; c != nil; c = c.NextSibling {
		blocks, inline := convertTopLevel(c)
		if len(inline) > 0 {
			pending = append(pending, inline...)
		}
		if len(blocks) > 0 {
			flush()
			root.Children = append(root.Children, blocks...)
		}
	}
	flush()

	if len(root.Children) == 0 {
		root.Children = []*node.Node{node.NewBlock(node.Paragraph)}
	}
	node.Normalize(root)
	return root, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// convertTopLevel converts one DOM node in block context. It returns either
// block nodes or an inline run (foreign markup may put either at top level).
func convertTopLevel(n *html.Node) (blocks []*node.Node, inline []*node.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil, nil
		}
		return nil, splitMentionText(n.Data)

	case html.ElementNode:
		switch n.DataAtom {
		case atom.P:
			return []*node.Node{node.NewBlock(node.Paragraph, convertInlineChildren(n)...)}, nil
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			level := int(n.Data[1] - '0')
			return []*node.Node{node.NewHeading(level, convertInlineChildren(n)...)}, nil
		case atom.Blockquote:
			return []*node.Node{node.NewBlock(node.Blockquote, convertInlineChildren(n)...)}, nil
		case atom.Pre:
			return []*node.Node{convertPre(n)}, nil
		case atom.Ul:
			return []*node.Node{convertList(n, node.BulletList)}, nil
		case atom.Ol:
			return []*node.Node{convertList(n, node.NumberedList)}, nil
		case atom.Table:
			return []*node.Node{convertTable(n)}, nil
		case atom.Img:
			return []*node.Node{node.NewImage(attrVal(n, "src"), attrVal(n, "alt"))}, nil
		case atom.Div, atom.Span:
			// Transparent containers: recurse in block context.
			var bs, run []*node.Node
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				b, in := convertTopLevel(c)
				bs = append(bs, b...)
				run = append(run, in...)
			}
			return bs, run
		default:
			return nil, convertInline(n)
		}
	}
	return nil, nil
}

// convertInlineChildren converts every child of n in inline context.
func convertInlineChildren(n *html.Node) []*node.Node {
	var out []*node.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, convertInline(c)...)
	}
	return out
}

// convertInline converts a DOM node in inline context. Unknown elements
// degrade to their text content.
func convertInline(n *html.Node) []*node.Node {
	switch n.Type {
	case html.TextNode:
		return splitMentionText(n.Data)

	case html.ElementNode:
		switch n.DataAtom {
		case atom.Strong, atom.B:
			return []*node.Node{wrapInline(n, node.Bold)}
		case atom.Em, atom.I:
			return []*node.Node{wrapInline(n, node.Italic)}
		case atom.U:
			return []*node.Node{wrapInline(n, node.Underline)}
		case atom.S, atom.Del:
			return []*node.Node{wrapInline(n, node.Strikethrough)}
		case atom.Code:
			return []*node.Node{wrapInline(n, node.InlineCode)}
		case atom.A:
			link := node.NewLink(attrVal(n, "href"), convertInlineChildren(n)...)
			if t := attrVal(n, "target"); t != "" {
				link.SetAttr("target", t)
			}
			if rel := attrVal(n, "rel"); rel != "" {
				link.SetAttr("rel", rel)
			}
			return []*node.Node{link}
		case atom.Img:
			return []*node.Node{node.NewImage(attrVal(n, "src"), attrVal(n, "alt"))}
		case atom.Br:
			return []*node.Node{node.NewText("\n")}
		default:
			return convertInlineChildren(n)
		}
	}
	return nil
}

func wrapInline(n *html.Node, kind node.Kind) *node.Node {
	return node.NewBlock(kind, convertInlineChildren(n)...)
}

// convertPre builds a code block. A nested <code> run is preserved as the
// inline-code wrapper; bare <pre> text gets one synthesized around it.
func convertPre(n *html.Node) *node.Node {
	inner := convertInlineChildren(n)
	if len(inner) == 1 && inner[0].Kind == node.InlineCode {
		return node.NewBlock(node.CodeBlock, inner...)
	}
	return node.NewBlock(node.CodeBlock, node.NewBlock(node.InlineCode, inner...))
}

// convertList builds a list node. List items keep full block children, so a
// heading inside a list item survives the round trip. Bare inline content in
// an <li> is wrapped in a paragraph.
func convertList(n *html.Node, kind node.Kind) *node.Node {
	list := &node.Node{Kind: kind}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		item := &node.Node{Kind: node.ListItem}
		var run []*node.Node
		flush := func() {
			if len(run) > 0 {
				item.Children = append(item.Children, node.NewBlock(node.Paragraph, run...))
				run = nil
			}
		}
		for lc := c.FirstChild; lc != nil; lc = lc.NextSibling {
			blocks, inline := convertTopLevel(lc)
			run = append(run, inline...)
			if len(blocks) > 0 {
				flush()
				item.Children = append(item.Children, blocks...)
			}
		}
		flush()
		if len(item.Children) == 0 {
			item.Children = []*node.Node{node.NewBlock(node.Paragraph)}
		}
		list.Children = append(list.Children, item)
	}
	if len(list.Children) == 0 {
		item := &node.Node{Kind: node.ListItem, Children: []*node.Node{node.NewBlock(node.Paragraph)}}
		list.Children = []*node.Node{item}
	}
	return list
}

// convertTable flattens thead/tbody and keeps header-ness per cell.
func convertTable(n *html.Node) *node.Node {
	table := &node.Node{Kind: node.Table}
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				visit(c.FirstChild)
			case atom.Tr:
				row := &node.Node{Kind: node.TableRow}
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode {
						continue
					}
					if cell.DataAtom == atom.Td || cell.DataAtom == atom.Th {
						cn := &node.Node{Kind: node.TableCell, Header: cell.DataAtom == atom.Th}
						cn.Children = convertInlineChildren(cell)
						if len(cn.Children) == 0 {
							cn.Children = []*node.Node{node.NewText("")}
						}
						row.Children = append(row.Children, cn)
					}
				}
				if len(row.Children) > 0 {
					table.Children = append(table.Children, row)
				}
			}
		}
	}
	visit(n.FirstChild)
	if len(table.Children) == 0 {
		table.Children = []*node.Node{node.NewBlock(node.TableRow, node.NewBlock(node.TableCell))}
	}
	return table
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
