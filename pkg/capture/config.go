// Package capture provides camera frame acquisition behind a common
// Source interface, plus the state machine that keeps software-visible
// camera state in lockstep with the hardware.
//
// Backends:
//   - gocv (OpenCV VideoCapture) - cross-platform
//   - v4l2 (pure Go) - Linux, no OpenCV required
//   - mock - testing without hardware
//
// The backend is selected automatically per platform, or explicitly via
// configuration.
package capture

import (
	"fmt"
	"time"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendGoCV uses OpenCV VideoCapture via gocv.
	BackendGoCV Backend = "gocv"
	// BackendV4L2 uses the pure-Go V4L2 interface on Linux.
	BackendV4L2 Backend = "v4l2"
	// BackendMock uses a synthetic frame generator for testing.
	BackendMock Backend = "mock"
)

// Config holds capture configuration.
type Config struct {
	// Backend specifies which capture backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `json:"backend"`

	// Device is the V4L2 device path. Default: "/dev/video0"
	Device string `json:"device"`

	// DeviceIndex is the camera index for the gocv backend. Default: 0
	DeviceIndex int `json:"device_index"`

	// Width and Height are the requested capture resolution. The
	// device may negotiate a different one; frames carry their actual
	// dimensions. Default: 640x480
	Width  int `json:"width"`
	Height int `json:"height"`

	// FPS is the target capture rate. Default: 30
	FPS int `json:"fps"`

	// FrameSkip is the minimum interval between two accepted frames,
	// enforced regardless of the device-reported rate. Frames arriving
	// early are dropped, never queued. Default: 33ms (~30 FPS cap)
	FrameSkip time.Duration `json:"frame_skip"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendAuto,
		Device:      "/dev/video0",
		DeviceIndex: 0,
		Width:       640,
		Height:      480,
		FPS:         30,
		FrameSkip:   33 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.FrameSkip < 0 {
		return fmt.Errorf("frame_skip must be non-negative, got %v", c.FrameSkip)
	}
	return nil
}

// Interval returns the capture poll interval derived from FPS.
func (c *Config) Interval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
