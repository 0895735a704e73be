package mcpserver

// MarkupContract describes the HTML subset that documents are stored in.
// LLM consumers should read it before creating or editing documents.
const MarkupContract = `# Quill Markup Contract

Every document stored in Quill is a fragment of a strict HTML subset.
Anything outside this subset is stripped on load.

## Blocks

` + "```" + `html
<p>paragraph</p>
<h1>heading</h1>          <!-- also h2, h3 -->
<blockquote>quote</blockquote>
<pre>code block</pre>
<ul><li><p>item</p></li></ul>
<ol><li><p>item</p></li></ol>
<table><tr><td><p>cell</p></td></tr></table>
` + "```" + `

## Inline formatting

` + "```" + `html
<strong>bold</strong>
<em>italic</em>
<u>underline</u>
<s>strikethrough</s>
<a href="https://example.com">link</a>
<img src="/attachments/diagram.png" alt="diagram">
<br>
` + "```" + `

## Rules

1. **A document is a sequence of blocks.** Bare text outside a block is
   wrapped in a paragraph on load.
2. **List items and table cells contain blocks**, normally a single
   paragraph.
3. **Links** must use http, https, or mailto URLs. A bare domain is
   rewritten to https.
4. **An empty document is** ` + "`" + `<p></p>` + "`" + `, never an empty string.
5. **Encoding** is UTF-8. Text content is entity-escaped (&amp;, &lt;,
   &gt;, &quot;).

## Mentions

References to portal records are durable tokens inside text content:

` + "```" + `
@[kind:id:title]
` + "```" + `

- ` + "`" + `kind` + "`" + ` is the record type (assignment, class, teacher, note).
- ` + "`" + `id` + "`" + ` is the record's stable identifier.
- ` + "`" + `title` + "`" + ` is display text; literal ` + "`" + `:` + "`" + `, ` + "`" + `]` + "`" + ` and ` + "`" + `\` + "`" + ` in it are
  backslash-escaped.
- Do not invent ids. Resolve records through the ` + "`" + `search_records` + "`" + ` tool
  first and use the id and kind it returns.
- Plain text that merely looks like a token must escape the opener:
  write ` + "`" + `@\[` + "`" + ` for a literal ` + "`" + `@[` + "`" + `.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns an ` + "`" + `htmlImage` + "`" + `
  field ready to insert with the insertImage command.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no
  sub-folders) and referenced as ` + "`" + `/attachments/filename.png` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `html
<h2>Study plan</h2>
<p>Finish @[assignment:a-42:Biology essay] before <strong>Friday</strong>.</p>
<ul><li><p>Re-read chapter 4</p></li><li><p>Draft outline</p></li></ul>
` + "```" + `
`
