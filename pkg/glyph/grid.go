package glyph

import "strings"

// Cell is one character of converted output: a glyph from the active
// charset plus an optional color sampled from the frame.
type Cell struct {
	Ch      rune
	R, G, B uint8
	Colored bool
}

// Grid is the text representation of one frame: rows of cells, built
// once per conversion and replaced wholesale on the next, never patched
// in place.
type Grid struct {
	Cells [][]Cell
}

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int {
	return len(g.Cells)
}

// Cols returns the number of columns in the grid.
func (g Grid) Cols() int {
	if len(g.Cells) == 0 {
		return 0
	}
	return len(g.Cells[0])
}

// Empty reports whether the grid has no cells.
func (g Grid) Empty() bool {
	return g.Rows() == 0 || g.Cols() == 0
}

// String renders the glyphs as newline-separated rows, dropping color.
// This is the representation served by the monitor endpoints.
func (g Grid) String() string {
	var b strings.Builder
	for i, row := range g.Cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			b.WriteRune(cell.Ch)
		}
	}
	return b.String()
}
