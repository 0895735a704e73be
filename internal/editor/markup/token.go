package markup

import (
	"strings"

	"github.com/starford/quill/internal/editor/node"
)

// Mentions persist as compact escaped text tokens of the form
//
//	@[kind:id:escaped-title]
//
// The token encodes only the (kind, id, title) triple; any richer record
// data lives in the engine's registry cache and degrades gracefully when
// absent. Backslash escapes protect '\', ':' and ']' inside segments.
//
// Plain text is escaped the other way: a literal "@[" (or "@\") in a text
// leaf renders as "@\[" ("@\\"), so only real mention nodes ever parse
// back as tokens.

// MentionToken renders the durable token for a mention triple.
func MentionToken(kind, id, title string) string {
	var sb strings.Builder
	sb.WriteString("@[")
	sb.WriteString(escapeSegment(kind))
	sb.WriteByte(':')
	sb.WriteString(escapeSegment(id))
	sb.WriteByte(':')
	sb.WriteString(escapeSegment(title))
	sb.WriteByte(']')
	return sb.String()
}

func escapeSegment(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '\\' || r == ':' || r == ']' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// escapeTokenText protects a text leaf from the token scanner: a '@'
// followed by '[' or '\' gets a backslash inserted after the '@'.
func escapeTokenText(s string) string {
	if !strings.ContainsRune(s, '@') {
		return s
	}
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		sb.WriteRune(r)
		if r == '@' && i+1 < len(runes) && (runes[i+1] == '[' || runes[i+1] == '\\') {
			sb.WriteByte('\\')
		}
	}
	return sb.String()
}

// splitMentionText scans a text run and converts every well-formed mention
// token into a visual mention node, returning the resulting inline sequence.
// Malformed tokens stay as literal text.
func splitMentionText(text string) []*node.Node {
	var (
		out   []*node.Node
		plain strings.Builder
	)
	runes := []rune(text)
	flush := func() {
		if plain.Len() > 0 {
			out = append(out, node.NewText(plain.String()))
			plain.Reset()
		}
	}

	for i := 0; i < len(runes); {
		if runes[i] == '@' && i+1 < len(runes) {
			// "@\x" is escaped literal text, never a token opener.
			if runes[i+1] == '\\' && i+2 < len(runes) {
				plain.WriteRune('@')
				plain.WriteRune(runes[i+2])
				i += 3
				continue
			}
			if runes[i+1] == '[' {
				if m, next, ok := scanMentionToken(runes, i); ok {
					flush()
					out = append(out, m)
					i = next
					continue
				}
			}
		}
		plain.WriteRune(runes[i])
		i++
	}
	flush()

	if out == nil {
		out = []*node.Node{node.NewText(text)}
	}
	return out
}

// scanMentionToken parses a token starting at runes[start] (which must be
// '@'). Returns the mention node and the index just past the closing ']'.
func scanMentionToken(runes []rune, start int) (*node.Node, int, bool) {
	i := start + 2 // past "@["
	var segs []string
	var cur strings.Builder

	for ; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\\':
			if i+1 >= len(runes) {
				return nil, 0, false
			}
			i++
			cur.WriteRune(runes[i])
		case ':':
			segs = append(segs, cur.String())
			cur.Reset()
		case ']':
			segs = append(segs, cur.String())
			if len(segs) != 3 {
				return nil, 0, false
			}
			kind, id, title := segs[0], segs[1], segs[2]
			if kind == "" || id == "" {
				return nil, 0, false
			}
			return node.NewMention(id, kind, title), i + 1, true
		case '\n':
			return nil, 0, false
		default:
			cur.WriteRune(r)
		}
	}
	return nil, 0, false
}
