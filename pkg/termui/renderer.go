// Package termui renders glyph grids to the terminal and turns raw key
// events into commands. It owns the termbox screen for the lifetime of
// the session.
package termui

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	termbox "github.com/nsf/termbox-go"

	"github.com/glyphcam/glyphcam/pkg/app"
	"github.com/glyphcam/glyphcam/pkg/glyph"
)

// Renderer paints glyph grids with termbox. RGB output mode is used so
// colored cells carry true per-pixel color.
type Renderer struct {
	tint    termbox.Attribute
	hasTint bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTint forces every non-colored cell to a single foreground color
// instead of the terminal default.
func WithTint(c colorful.Color) Option {
	return func(r *Renderer) {
		cr, cg, cb := c.RGB255()
		r.tint = termbox.RGBToAttribute(cr, cg, cb)
		r.hasTint = true
	}
}

// New initializes the terminal screen. Close must be called before the
// process exits or the terminal is left in raw mode.
func New(opts ...Option) (*Renderer, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal: %w", err)
	}
	termbox.SetOutputMode(termbox.OutputRGB)
	termbox.HideCursor()

	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Render replaces the screen contents with the grid and a status line.
func (r *Renderer) Render(grid glyph.Grid, status app.Status) error {
	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return err
	}

	_, rows := termbox.Size()
	for y, row := range grid.Cells {
		if y >= rows-1 {
			break
		}
		for x, cell := range row {
			fg := termbox.ColorDefault
			switch {
			case cell.Colored:
				fg = termbox.RGBToAttribute(cell.R, cell.G, cell.B)
			case r.hasTint:
				fg = r.tint
			}
			termbox.SetCell(x, y, cell.Ch, fg, termbox.ColorDefault)
		}
	}

	r.drawStatus(status)
	return termbox.Flush()
}

func (r *Renderer) drawStatus(status app.Status) {
	cols, rows := termbox.Size()
	if rows == 0 {
		return
	}

	line := StatusLine(status)
	y := rows - 1
	x := 0
	for _, ch := range line {
		if x >= cols {
			break
		}
		termbox.SetCell(x, y, ch, termbox.AttrReverse, termbox.ColorDefault)
		x++
	}
	for ; x < cols; x++ {
		termbox.SetCell(x, y, ' ', termbox.AttrReverse, termbox.ColorDefault)
	}
}

// StatusLine formats the status surface shown on the bottom row.
func StatusLine(status app.Status) string {
	color := "off"
	if status.Color {
		color = "on"
	}
	line := fmt.Sprintf(" [%s] cam %d | %.1f fps | %s | scale %.1f | color %s",
		status.State, status.Camera, status.FPS, status.Charset, status.Scale, color)
	if status.Message != "" {
		line += " | " + status.Message
	}
	return line
}

// Size returns the terminal size in cells.
func (r *Renderer) Size() (cols, rows int) {
	return termbox.Size()
}

// Interrupt unblocks a pending input poll so the listener goroutine
// can exit.
func (r *Renderer) Interrupt() {
	termbox.Interrupt()
}

// Close restores the terminal.
func (r *Renderer) Close() {
	termbox.Close()
}
