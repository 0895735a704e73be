// Package command turns named user intents (toggle bold, change block type,
// insert table, insert mention) into structural tree mutations. Every
// command runs the same pipeline: validate selection, compute targets,
// mutate, normalize, re-anchor the selection, notify. Failures are boolean
// and never leave the tree partially mutated; validation precedes any
// destructive step.
package command

import (
	"github.com/starford/quill/internal/editor/node"
	"github.com/starford/quill/internal/editor/selection"
)

// Context carries the mutable editing state a command operates on. It is
// built per invocation, not long-lived.
type Context struct {
	Root    *node.Node
	Surface selection.Surface
	// Notify is called once after a successful mutation.
	Notify func()
}

// Func is a single command implementation.
type Func func(ctx *Context, value any) bool

// Dispatcher is a registry of named commands.
type Dispatcher struct {
	commands map[string]Func
}

// NewDispatcher creates a dispatcher with all built-in commands registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{commands: make(map[string]Func)}

	for _, k := range node.MarkKinds {
		kind := k
		d.Register(string(kind), func(ctx *Context, _ any) bool {
			return toggleFormat(ctx, kind)
		})
	}

	d.Register("setBlockType", setBlockType)
	d.Register("toggleList", toggleList)
	d.Register("insertTable", insertTable)
	d.Register("tableNavigate", tableNavigate)
	d.Register("insertLink", insertLink)
	d.Register("insertImage", insertImage)
	d.Register("insertText", insertText)
	d.Register("deleteBackward", deleteBackward)
	d.Register("insertMention", insertMention)

	return d
}

// Register adds or replaces a named command.
func (d *Dispatcher) Register(name string, fn Func) {
	d.commands[name] = fn
}

// Has reports whether a command is registered under name.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.commands[name]
	return ok
}

// Names returns the registered command names.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.commands))
	for name := range d.commands {
		out = append(out, name)
	}
	return out
}

// Execute runs the named command. Unknown names are a failed no-op; a
// panicking command is contained here and reported as failure so no
// internal error can abort the caller.
func (d *Dispatcher) Execute(ctx *Context, name string, value any) (ok bool) {
	fn, found := d.commands[name]
	if !found {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	ok = fn(ctx, value)
	if ok {
		node.Normalize(ctx.Root)
		if ctx.Notify != nil {
			ctx.Notify()
		}
	}
	return ok
}

// currentSelection resolves the surface's selection against the tree.
// A torn selection (its path no longer exists) counts as no selection.
func (ctx *Context) currentSelection() (selection.Selection, bool) {
	raw, ok := ctx.Surface.Selection()
	if !ok {
		return selection.Selection{}, false
	}
	sel, valid := selection.Resolve(ctx.Root, raw)
	if !valid {
		ctx.Surface.ClearSelection()
		return selection.Selection{}, false
	}
	return sel, true
}

// anchorLeaf returns the text leaf holding the selection anchor.
func (ctx *Context) anchorLeaf(sel selection.Selection) *node.Node {
	n := node.Resolve(ctx.Root, sel.Anchor.Path)
	if n == nil || n.Kind != node.Text {
		return nil
	}
	return n
}

// topBlockOf returns the top-level block (direct child of root) containing
// n, and its index, or (nil, -1).
func (ctx *Context) topBlockOf(n *node.Node) (*node.Node, int) {
	chain := node.Ancestors(ctx.Root, n)
	if len(chain) < 2 {
		// n is the root or a direct child; direct child case below.
		for i, ch := range ctx.Root.Children {
			if ch == n {
				return ch, i
			}
		}
		return nil, -1
	}
	top := chain[1]
	for i, ch := range ctx.Root.Children {
		if ch == top {
			return ch, i
		}
	}
	return nil, -1
}

// caretAtFirstText collapses the selection into the first text leaf of n.
func (ctx *Context) caretAtFirstText(n *node.Node) bool {
	leaf := node.FirstText(n)
	if leaf == nil {
		return false
	}
	p, ok := selection.PointAt(ctx.Root, leaf, 0)
	if !ok {
		return false
	}
	ctx.Surface.SetSelection(selection.Caret(p))
	return true
}

// restoreByOffsets re-anchors the selection to the same global rune offsets,
// used after mutations that rearrange structure without changing text.
func (ctx *Context) restoreByOffsets(startOff, endOff int) {
	node.Normalize(ctx.Root)
	start, okS := selection.PointAtOffset(ctx.Root, startOff, false)
	end, okE := selection.PointAtOffset(ctx.Root, endOff, true)
	if !okS || !okE {
		if def, ok := selection.Start(ctx.Root); ok {
			ctx.Surface.SetSelection(def)
		} else {
			ctx.Surface.ClearSelection()
		}
		return
	}
	if startOff == endOff {
		ctx.Surface.SetSelection(selection.Caret(end))
		return
	}
	ctx.Surface.SetSelection(selection.Selection{Anchor: start, Focus: end})
}
