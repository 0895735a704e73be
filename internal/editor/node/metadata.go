package node

import (
	"strings"
	"unicode/utf8"
)

// Metadata is derived from the tree on every request. It is never stored
// independently, so it cannot drift from the content.
type Metadata struct {
	WordCount  int      `json:"word_count"`
	CharCount  int      `json:"char_count"`
	MentionIDs []string `json:"mention_ids"`
}

// ComputeMetadata walks all text-bearing leaves of the tree. Word count
// splits on whitespace runs, ignoring empty tokens. Mention ids are
// deduplicated in first-seen order.
func ComputeMetadata(root *Node) Metadata {
	var (
		md   Metadata
		seen = make(map[string]struct{})
	)
	root.Walk(func(n *Node) bool {
		switch n.Kind {
		case Text:
			md.CharCount += utf8.RuneCountInString(n.Text)
			md.WordCount += len(strings.Fields(n.Text))
		case Mention:
			id := n.Attr("id")
			if _, dup := seen[id]; !dup && id != "" {
				seen[id] = struct{}{}
				md.MentionIDs = append(md.MentionIDs, id)
			}
			title := n.Attr("title")
			md.CharCount += utf8.RuneCountInString(title) + 1
			if title != "" {
				md.WordCount++
			}
		}
		return true
	})
	if md.MentionIDs == nil {
		md.MentionIDs = []string{}
	}
	return md
}
