package capture

import (
	"fmt"
	"time"
)

// Frame is one captured raster image: an owned buffer of interleaved
// pixel samples plus dimensions. A frame is produced once by a Source,
// consumed immutably, then discarded; it is never shared for mutation.
type Frame struct {
	// Pix contains interleaved samples, row-major. For Channels == 3
	// the order is R, G, B.
	Pix []byte

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// Channels is the number of samples per pixel: 3 (RGB) or 1 (gray).
	Channels int

	// Captured is the time the frame was read from the device.
	Captured time.Time
}

// Validate checks that the buffer length matches the declared geometry.
// A frame that fails validation must be dropped, never indexed.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadFrame, f.Width, f.Height)
	}
	if f.Channels != 1 && f.Channels != 3 {
		return fmt.Errorf("%w: %d channels", ErrBadFrame, f.Channels)
	}
	want := f.Width * f.Height * f.Channels
	if len(f.Pix) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrBadFrame, len(f.Pix), want)
	}
	return nil
}

// At returns the RGB sample at (x, y). Coordinates are clamped to the
// frame bounds. Grayscale frames replicate the single sample.
func (f *Frame) At(x, y int) (r, g, b uint8) {
	if x < 0 {
		x = 0
	} else if x >= f.Width {
		x = f.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.Height {
		y = f.Height - 1
	}
	i := (y*f.Width + x) * f.Channels
	if f.Channels == 1 {
		v := f.Pix[i]
		return v, v, v
	}
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}
