// Package glyph converts raw camera frames into grids of text glyphs.
// Conversion is pure: frame in, grid out, no shared mutable state.
package glyph

// Charset is an ordered palette of glyphs indexed by brightness.
// Glyphs[0] renders darkest and the last glyph renders brightest, so
// the luminance-to-index mapping needs no inversion. Monotonicity of
// visual density across the ramp is what keeps brightness mapping
// unambiguous; charset_test asserts it stays that way.
type Charset struct {
	Name   string
	Glyphs []rune
}

// Built-in ramps. On the usual dark terminal background a space renders
// darkest and a solid block brightest.
var (
	// Dense has the most brightness resolution.
	Dense = Charset{Name: "dense", Glyphs: []rune{' ', '.', ',', ':', ';', '+', '*', '?', '%', 'S', '#', '@'}}
	// Simple is a coarser ASCII-only ramp.
	Simple = Charset{Name: "simple", Glyphs: []rune{' ', '.', '-', '+', '*', '#', '@'}}
	// Blocks uses partial block elements.
	Blocks = Charset{Name: "blocks", Glyphs: []rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉', '█'}}
	// Minimal uses shade blocks only.
	Minimal = Charset{Name: "minimal", Glyphs: []rune{' ', '░', '▒', '▓', '█'}}
)

// Sets is the rotation order for the next/previous charset commands.
var Sets = []Charset{Dense, Simple, Blocks, Minimal}

// Len returns the number of glyphs in the ramp.
func (c Charset) Len() int {
	return len(c.Glyphs)
}

// Index maps a 0-255 luminance linearly onto the ramp:
// index = lum * (len-1) / 255, clamped to valid bounds.
func (c Charset) Index(lum uint8) int {
	n := len(c.Glyphs)
	if n == 0 {
		return 0
	}
	idx := int(lum) * (n - 1) / 255
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Glyph returns the ramp glyph for a 0-255 luminance. An empty ramp
// yields a space rather than indexing out of range.
func (c Charset) Glyph(lum uint8) rune {
	if len(c.Glyphs) == 0 {
		return ' '
	}
	return c.Glyphs[c.Index(lum)]
}

// NextSet returns the index of the charset after i in rotation order.
func NextSet(i int) int {
	return (i + 1) % len(Sets)
}

// PreviousSet returns the index of the charset before i in rotation order.
func PreviousSet(i int) int {
	return (i - 1 + len(Sets)) % len(Sets)
}
