package app

import (
	"github.com/glyphcam/glyphcam/pkg/glyph"
)

// Scale bounds and step, matching the chunkiness range that stays
// legible in a terminal.
const (
	minScale  = 0.1
	maxScale  = 2.0
	scaleStep = 0.1
)

// statusRows is the number of terminal rows reserved for the status
// line below the glyph grid.
const statusRows = 2

// Settings holds the runtime-tunable conversion parameters. They are
// written only by the router in response to commands and read by the
// converter as an immutable snapshot per frame, so no locking is
// needed beyond the hand-off.
type Settings struct {
	// CharsetIndex selects from glyph.Sets.
	CharsetIndex int `json:"charset_index"`

	// Scale multiplies the terminal-derived grid size.
	Scale float64 `json:"scale"`

	// Color enables per-cell color sampled from the frame.
	Color bool `json:"color"`

	// CameraIndex is the currently selected capture device.
	CameraIndex int `json:"camera_index"`
}

// DefaultSettings returns the session defaults.
func DefaultSettings() Settings {
	return Settings{
		CharsetIndex: 0,
		Scale:        1.0,
		Color:        false,
		CameraIndex:  0,
	}
}

// Charset returns the active glyph ramp.
func (s Settings) Charset() glyph.Charset {
	i := s.CharsetIndex
	if i < 0 || i >= len(glyph.Sets) {
		i = 0
	}
	return glyph.Sets[i]
}

// IncreaseScale steps the scale up, clamped to its maximum.
func (s *Settings) IncreaseScale() {
	s.Scale += scaleStep
	if s.Scale > maxScale {
		s.Scale = maxScale
	}
}

// DecreaseScale steps the scale down, clamped to its minimum.
func (s *Settings) DecreaseScale() {
	s.Scale -= scaleStep
	if s.Scale < minScale {
		s.Scale = minScale
	}
}

// GridSize derives the conversion target from the terminal size,
// reserving the status rows and applying the scale factor. Either
// dimension may come out zero on a tiny terminal; the converter
// treats that as an empty grid, not an error.
func (s Settings) GridSize(termCols, termRows int) (rows, cols int) {
	rows = termRows - statusRows
	cols = termCols
	if rows < 0 {
		rows = 0
	}
	rows = int(float64(rows) * s.Scale)
	cols = int(float64(cols) * s.Scale)
	return rows, cols
}
