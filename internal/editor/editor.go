// Package editor assembles the document engine: tree, selection surface,
// command dispatcher, history and mention session behind one facade. An
// Engine owns exactly one document. All mutation is serialized through
// the engine's lock; the debounce timers in history and mention re-enter
// through generation checks, never through the tree.
package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/starford/quill/internal/editor/command"
	"github.com/starford/quill/internal/editor/history"
	"github.com/starford/quill/internal/editor/markup"
	"github.com/starford/quill/internal/editor/mention"
	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	lookup          mention.Lookup
	historyLimit    int
	historyDebounce time.Duration
	mentionDebounce time.Duration
	mentionQueryCap int
	trigger         rune
	onChange        func()
}

// WithLookup sets the mention suggestion source.
func WithLookup(l mention.Lookup) Option {
	return func(o *options) { o.lookup = l }
}

// WithHistoryLimit caps the undo stack depth.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithHistoryDebounce sets the quiet period before edits commit to history.
func WithHistoryDebounce(d time.Duration) Option {
	return func(o *options) { o.historyDebounce = d }
}

// WithMentionDebounce sets the quiet period before a mention query searches.
func WithMentionDebounce(d time.Duration) Option {
	return func(o *options) { o.mentionDebounce = d }
}

// WithMentionQueryCap sets the query length that auto-dismisses a mention.
func WithMentionQueryCap(n int) Option {
	return func(o *options) { o.mentionQueryCap = n }
}

// WithTrigger sets the mention trigger rune.
func WithTrigger(r rune) Option {
	return func(o *options) { o.trigger = r }
}

// WithOnChange registers a callback fired after every successful mutation
// and every suggestion update. It runs without the engine lock held.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

// noopLookup backs engines created without a directory.
type noopLookup struct{}

func (noopLookup) Search(context.Context, string) ([]mention.Record, error) {
	return nil, nil
}

func (noopLookup) Refresh(context.Context, string, string) (*mention.Record, bool, error) {
	return nil, false, nil
}

// Engine is the per-document editing facade.
type Engine struct {
	mu         sync.Mutex
	root       *node.Node
	surface    *selection.Headless
	dispatcher *command.Dispatcher
	history    *history.Stack
	registry   *mention.Registry
	session    *mention.Session
	lookup     mention.Lookup
	onChange   func()
}

// fireChange invokes the registered onChange callback, if any. Callers
// must not hold the engine lock.
func (e *Engine) fireChange() {
	if e.onChange != nil {
		e.onChange()
	}
}

// New creates an engine holding a single empty paragraph.
func New(opts ...Option) *Engine {
	o := &options{lookup: noopLookup{}}
	for _, opt := range opts {
		opt(o)
	}

	var histOpts []history.Option
	if o.historyLimit > 0 {
		histOpts = append(histOpts, history.WithLimit(o.historyLimit))
	}
	if o.historyDebounce > 0 {
		histOpts = append(histOpts, history.WithDebounce(o.historyDebounce))
	}

	e := &Engine{
		root:       node.NewRoot(node.NewBlock(node.Paragraph)),
		surface:    selection.NewHeadless(),
		dispatcher: command.NewDispatcher(),
		history:    history.New(histOpts...),
		registry:   mention.NewRegistry(),
		lookup:     o.lookup,
		onChange:   o.onChange,
	}

	sessOpts := []mention.SessionOption{mention.WithNotify(e.fireChange)}
	if o.mentionDebounce > 0 {
		sessOpts = append(sessOpts, mention.WithDebounce(o.mentionDebounce))
	}
	if o.mentionQueryCap > 0 {
		sessOpts = append(sessOpts, mention.WithQueryCap(o.mentionQueryCap))
	}
	if o.trigger != 0 {
		sessOpts = append(sessOpts, mention.WithTrigger(o.trigger))
	}
	e.session = mention.NewSession(o.lookup, sessOpts...)

	if sel, ok := selection.Start(e.root); ok {
		e.surface.SetSelection(sel)
	}
	e.history.Init(markup.Render(e.root))
	return e
}

// LoadMarkup replaces the document with the parsed markup, resets the
// selection to the start and re-seeds history. Foreign markup is
// sanitized during parsing; durable mention tokens become visual nodes.
func (e *Engine) LoadMarkup(m string) error {
	root, err := markup.Parse(m)
	if err != nil {
		return fmt.Errorf("editor: parse markup: %w", err)
	}
	e.mu.Lock()
	e.root = root
	if sel, ok := selection.Start(e.root); ok {
		e.surface.SetSelection(sel)
	} else {
		e.surface.ClearSelection()
	}
	e.session.Dismiss()
	e.history.Init(markup.Render(e.root))
	e.mu.Unlock()
	e.fireChange()
	return nil
}

// Markup serializes the current document.
func (e *Engine) Markup() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return markup.Render(e.root)
}

// Metadata computes word count, character count and mention ids.
func (e *Engine) Metadata() node.Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return node.ComputeMetadata(e.root)
}

// ExecuteCommand dispatches a named command against the document. A
// successful command records a debounced history entry.
func (e *Engine) ExecuteCommand(name string, value any) bool {
	e.mu.Lock()
	ctx := &command.Context{
		Root:    e.root,
		Surface: e.surface,
		Notify: func() {
			e.history.Record(markup.Render(e.root))
		},
	}
	ok := e.dispatcher.Execute(ctx, name, value)
	e.mu.Unlock()
	if ok {
		e.fireChange()
	}
	return ok
}

// ActiveFormats lists the mark formats covering the whole selection.
func (e *Engine) ActiveFormats() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return command.ActiveFormats(e.root, e.surface)
}

// CurrentBlockType names the block housing the selection anchor.
func (e *Engine) CurrentBlockType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return command.CurrentBlockType(e.root, e.surface)
}

// Undo steps the document back one history entry.
func (e *Engine) Undo() bool {
	return e.restore(e.history.Undo)
}

// Redo steps the document forward one history entry.
func (e *Engine) Redo() bool {
	return e.restore(e.history.Redo)
}

func (e *Engine) restore(move func() (history.Snapshot, bool)) bool {
	e.mu.Lock()
	snap, ok := move()
	if !ok {
		e.mu.Unlock()
		return false
	}
	root, err := markup.Parse(snap.Markup)
	if err != nil {
		e.mu.Unlock()
		return false
	}
	e.root = root
	if sel, ok := selection.Start(e.root); ok {
		e.surface.SetSelection(sel)
	} else {
		e.surface.ClearSelection()
	}
	e.session.Dismiss()
	e.mu.Unlock()
	e.fireChange()
	return true
}

// Flush commits any pending history entry, used before saving.
func (e *Engine) Flush() {
	e.history.Flush()
}

// Select replaces the selection.
func (e *Engine) Select(sel selection.Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surface.SetSelection(sel)
}

// Selection returns the current selection.
func (e *Engine) Selection() (selection.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface.Selection()
}

// SelectStart collapses the selection into the first text leaf.
func (e *Engine) SelectStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel, ok := selection.Start(e.root)
	if !ok {
		return false
	}
	e.surface.SetSelection(sel)
	return true
}

// Root exposes the tree for tests and read-only inspection.
func (e *Engine) Root() *node.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

// TypeText feeds typed text through the input path one rune at a time,
// driving the mention session: a trigger at a word boundary starts it and
// later runes extend the query.
func (e *Engine) TypeText(s string) bool {
	for _, r := range s {
		if !e.typeRune(r) {
			return false
		}
	}
	return true
}

func (e *Engine) typeRune(r rune) bool {
	e.mu.Lock()
	prev := e.prevRuneLocked()
	e.mu.Unlock()

	if !e.ExecuteCommand("insertText", string(r)) {
		return false
	}
	if e.session.Active() {
		e.session.Extend(r)
	} else if r == e.session.Trigger() && mention.TriggerBoundary(prev) {
		e.session.Start()
	}
	return true
}

// Backspace deletes the rune before the caret and keeps the mention query
// in step with the document.
func (e *Engine) Backspace() bool {
	ok := e.ExecuteCommand("deleteBackward", nil)
	if ok && e.session.Active() {
		e.session.Backspace()
	}
	return ok
}

// prevRuneLocked returns the rune preceding the caret within its top-level
// block, or zero at a block start.
func (e *Engine) prevRuneLocked() rune {
	raw, ok := e.surface.Selection()
	if !ok {
		return 0
	}
	sel, ok := selection.Resolve(e.root, raw)
	if !ok || !sel.Collapsed() {
		return 0
	}
	leaf := node.Resolve(e.root, sel.Anchor.Path)
	if leaf == nil || leaf.Kind != node.Text {
		return 0
	}
	if sel.Anchor.Offset > 0 {
		runes := []rune(leaf.Text)
		return runes[sel.Anchor.Offset-1]
	}
	chain := node.Ancestors(e.root, leaf)
	if len(chain) < 2 {
		return 0
	}
	leaves := node.TextLeaves(chain[1])
	for i, l := range leaves {
		if l == leaf && i > 0 {
			prev := []rune(leaves[i-1].Text)
			if len(prev) > 0 {
				return prev[len(prev)-1]
			}
		}
	}
	return 0
}

// MentionState returns the session's lifecycle state.
func (e *Engine) MentionState() mention.State {
	return e.session.State()
}

// MentionSuggestions returns the suggestion list and highlight index.
func (e *Engine) MentionSuggestions() ([]mention.Record, int) {
	return e.session.Suggestions()
}

// NavigateMention moves the suggestion highlight.
func (e *Engine) NavigateMention(delta int) {
	e.session.Navigate(delta)
}

// DismissMention abandons the mention interaction.
func (e *Engine) DismissMention() {
	e.session.Dismiss()
}

// CommitMention inserts the highlighted suggestion, replacing the trigger
// span, and caches its record in the registry.
func (e *Engine) CommitMention() bool {
	rec, span, ok := e.session.Commit()
	if !ok {
		return false
	}
	spec := command.MentionSpec{ID: rec.ID, Kind: rec.Kind, Title: rec.Title, SpanLen: span}
	if !e.ExecuteCommand("insertMention", spec) {
		return false
	}
	e.registry.Put(rec)
	return true
}

// SearchMentions queries the lookup directly, bypassing the session. The
// HTTP mention endpoint uses this.
func (e *Engine) SearchMentions(ctx context.Context, query string) ([]mention.Record, error) {
	return e.lookup.Search(ctx, query)
}

// Registry returns the per-engine mention record cache.
func (e *Engine) Registry() *mention.Registry {
	return e.registry
}

// ResolveMentions refreshes the registry entry and displayed title of
// every mention in the document. Lookup failures leave the stored title
// in place.
func (e *Engine) ResolveMentions(ctx context.Context) {
	e.mu.Lock()
	var mentions []*node.Node
	e.root.Walk(func(n *node.Node) bool {
		if n.Kind == node.Mention {
			mentions = append(mentions, n)
		}
		return true
	})
	e.mu.Unlock()

	for _, m := range mentions {
		id, kind := m.Attr("id"), m.Attr("kind")
		rec, ok, err := e.registry.Refresh(ctx, e.lookup, id, kind)
		if err != nil || !ok {
			continue
		}
		e.mu.Lock()
		m.SetAttr("title", rec.Title)
		e.mu.Unlock()
	}
}
