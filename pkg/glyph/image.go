package glyph

import (
	"image"

	"github.com/disintegration/imaging"
)

// FromImage converts a still image onto a rows x cols glyph grid. The
// image is resampled with a box filter (area average), matching what
// Convert does directly on raw frame buffers. Used for still inputs;
// the live path stays on Convert to avoid an image.Image copy per
// frame.
func FromImage(img image.Image, rows, cols int, set Charset, colorEnabled bool) Grid {
	if rows <= 0 || cols <= 0 {
		return Grid{}
	}

	small := imaging.Resize(img, cols, rows, imaging.Box)

	cells := make([][]Cell, rows)
	for y := 0; y < rows; y++ {
		row := make([]Cell, cols)
		for x := 0; x < cols; x++ {
			px := small.NRGBAAt(x, y)
			cell := Cell{Ch: set.Glyph(Luminance(px.R, px.G, px.B))}
			if colorEnabled {
				cell.R, cell.G, cell.B = px.R, px.G, px.B
				cell.Colored = true
			}
			row[x] = cell
		}
		cells[y] = row
	}
	return Grid{Cells: cells}
}
