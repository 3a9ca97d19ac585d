package glyph

import (
	"github.com/glyphcam/glyphcam/pkg/capture"
)

// Luminance weights (BT.601 scaled to integer math). The divisor is
// derived from the weight sum rather than written as a constant: a
// divisor that does not match the sum silently compresses the output
// range and collapses the difference between charsets.
const (
	lumR = 77
	lumG = 150
	lumB = 29
	// lumDiv is 256, which also keeps the division cheap.
	lumDiv = lumR + lumG + lumB
)

// Luminance returns the 0-255 perceptual brightness of an RGB sample.
func Luminance(r, g, b uint8) uint8 {
	return uint8((lumR*int(r) + lumG*int(g) + lumB*int(b)) / lumDiv)
}

// Convert maps a frame onto a rows x cols glyph grid.
//
// Each output cell is the area average of the source region it covers,
// a quality/speed compromise between nearest-neighbor (visibly blocky)
// and windowed filters (too slow for per-frame work). The averaged
// luminance indexes the charset; with color enabled the averaged RGB
// rides along on the cell.
//
// A zero-sized target yields an empty grid and no error. A frame whose
// buffer does not match its dimensions yields ErrBadFrame; the caller
// drops the frame and keeps the previous grid.
func Convert(f capture.Frame, rows, cols int, set Charset, colorEnabled bool) (Grid, error) {
	if rows <= 0 || cols <= 0 {
		return Grid{}, nil
	}
	if err := f.Validate(); err != nil {
		return Grid{}, err
	}

	xScale := float64(f.Width) / float64(cols)
	yScale := float64(f.Height) / float64(rows)

	cells := make([][]Cell, rows)
	for y := 0; y < rows; y++ {
		row := make([]Cell, cols)
		y0, y1 := span(y, yScale, f.Height)
		for x := 0; x < cols; x++ {
			x0, x1 := span(x, xScale, f.Width)
			r, g, b := boxAverage(&f, x0, y0, x1, y1)
			cell := Cell{Ch: set.Glyph(Luminance(r, g, b))}
			if colorEnabled {
				cell.R, cell.G, cell.B = r, g, b
				cell.Colored = true
			}
			row[x] = cell
		}
		cells[y] = row
	}
	return Grid{Cells: cells}, nil
}

// span maps output index i onto the half-open source range it covers,
// clamped to [0, limit) and never empty even when rounding collapses it.
func span(i int, scale float64, limit int) (lo, hi int) {
	lo = int(float64(i) * scale)
	hi = int(float64(i+1) * scale)
	if lo >= limit {
		lo = limit - 1
	}
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	if hi > limit {
		hi = limit
	}
	return lo, hi
}

// boxAverage averages the samples of a source region. Bounds are
// already clamped by span, so the buffer is indexed directly.
func boxAverage(f *capture.Frame, x0, y0, x1, y1 int) (r, g, b uint8) {
	var rs, gs, bs, n int
	if f.Channels == 1 {
		for y := y0; y < y1; y++ {
			base := y * f.Width
			for x := x0; x < x1; x++ {
				v := int(f.Pix[base+x])
				rs += v
				gs += v
				bs += v
				n++
			}
		}
	} else {
		for y := y0; y < y1; y++ {
			base := y * f.Width * 3
			for x := x0; x < x1; x++ {
				i := base + x*3
				rs += int(f.Pix[i])
				gs += int(f.Pix[i+1])
				bs += int(f.Pix[i+2])
				n++
			}
		}
	}
	if n == 0 {
		return 0, 0, 0
	}
	return uint8(rs / n), uint8(gs / n), uint8(bs / n)
}
