package command

import (
	"github.com/starford/quill/internal/editor/node"
)

const (
	defaultTableRows = 2
	defaultTableCols = 2
)

// TableSpec describes the grid to insert.
type TableSpec struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func parseTableSpec(value any) TableSpec {
	spec := TableSpec{Rows: defaultTableRows, Cols: defaultTableCols}
	switch v := value.(type) {
	case TableSpec:
		spec = v
	case *TableSpec:
		if v != nil {
			spec = *v
		}
	case map[string]any:
		if r, ok := intValue(v["rows"]); ok {
			spec.Rows = r
		}
		if c, ok := intValue(v["cols"]); ok {
			spec.Cols = c
		}
	}
	if spec.Rows < 1 {
		spec.Rows = defaultTableRows
	}
	if spec.Cols < 1 {
		spec.Cols = defaultTableCols
	}
	return spec
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64: // JSON numbers decode as float64
		return int(n), true
	}
	return 0, false
}

// insertTable inserts a rows×cols grid with a header row immediately after
// the anchor block, followed by a trailing empty paragraph so the user can
// always place a cursor after the table. The cursor stays in the anchor
// block; tableNavigate("next") then steps into the first cell.
func insertTable(ctx *Context, value any) bool {
	spec := parseTableSpec(value)

	insertAt := len(ctx.Root.Children)
	hadSelection := false
	if sel, ok := ctx.currentSelection(); ok {
		if leaf := ctx.anchorLeaf(sel); leaf != nil {
			if _, idx := ctx.topBlockOf(leaf); idx >= 0 {
				insertAt = idx + 1
				hadSelection = true
			}
		}
	}

	table := &node.Node{Kind: node.Table}
	for r := 0; r < spec.Rows; r++ {
		table.Children = append(table.Children, newTableRow(spec.Cols, r == 0))
	}

	ctx.Root.InsertChild(insertAt, table)
	ctx.Root.InsertChild(insertAt+1, node.NewBlock(node.Paragraph))

	if hadSelection {
		// Insertion happened after the anchor block, so the existing
		// selection paths are untouched.
		return true
	}
	return ctx.caretAtFirstText(table)
}

func newTableRow(cols int, header bool) *node.Node {
	row := &node.Node{Kind: node.TableRow}
	for c := 0; c < cols; c++ {
		cell := &node.Node{Kind: node.TableCell, Header: header, Children: []*node.Node{node.NewText("")}}
		row.Children = append(row.Children, cell)
	}
	return row
}

// tableNavigate walks the flattened cell list of the enclosing table in
// document order. Stepping past the last cell appends a new row and moves
// into its first cell; stepping before the first cell fails.
func tableNavigate(ctx *Context, value any) bool {
	dir, ok := value.(string)
	if !ok || (dir != "next" && dir != "prev") {
		return false
	}
	sel, ok := ctx.currentSelection()
	if !ok {
		return false
	}
	leaf := ctx.anchorLeaf(sel)
	if leaf == nil {
		return false
	}

	var table, cell *node.Node
	for _, anc := range node.Ancestors(ctx.Root, leaf) {
		switch anc.Kind {
		case node.Table:
			table = anc
		case node.TableCell:
			cell = anc
		}
	}
	if table == nil || cell == nil {
		// Not inside a table: step into an adjacent one if present.
		return ctx.enterAdjacentTable(leaf, dir)
	}

	cells := flattenCells(table)
	cur := -1
	for i, c := range cells {
		if c == cell {
			cur = i
			break
		}
	}
	if cur < 0 {
		return false
	}

	var target *node.Node
	if dir == "next" {
		if cur+1 < len(cells) {
			target = cells[cur+1]
		} else {
			cols := len(table.Children[len(table.Children)-1].Children)
			row := newTableRow(cols, false)
			table.Children = append(table.Children, row)
			target = row.Children[0]
		}
	} else {
		if cur == 0 {
			return false
		}
		target = cells[cur-1]
	}

	return ctx.caretAtFirstText(target)
}

// enterAdjacentTable moves the caret into a table sitting directly after
// ("next") or before ("prev") the anchor's top-level block.
func (ctx *Context) enterAdjacentTable(leaf *node.Node, dir string) bool {
	_, idx := ctx.topBlockOf(leaf)
	if idx < 0 {
		return false
	}
	neighbor := idx + 1
	if dir == "prev" {
		neighbor = idx - 1
	}
	if neighbor < 0 || neighbor >= len(ctx.Root.Children) {
		return false
	}
	table := ctx.Root.Children[neighbor]
	if table.Kind != node.Table {
		return false
	}
	cells := flattenCells(table)
	if len(cells) == 0 {
		return false
	}
	target := cells[0]
	if dir == "prev" {
		target = cells[len(cells)-1]
	}
	return ctx.caretAtFirstText(target)
}

// flattenCells lists a table's cells in document order.
func flattenCells(table *node.Node) []*node.Node {
	var out []*node.Node
	for _, row := range table.Children {
		if row.Kind != node.TableRow {
			continue
		}
		for _, cell := range row.Children {
			if cell.Kind == node.TableCell {
				out = append(out, cell)
			}
		}
	}
	return out
}
