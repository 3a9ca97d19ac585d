package capture

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrBadFrame indicates a frame buffer whose length does not match
	// its declared dimensions.
	ErrBadFrame = errors.New("capture: malformed frame buffer")

	// ErrTransitioning is returned when a start or stop is requested
	// while a previous transition is still waiting for hardware ack.
	ErrTransitioning = errors.New("capture: state transition in progress")

	// ErrDeviceFailed is returned once force-stop retries are exhausted.
	// Only Reset clears it.
	ErrDeviceFailed = errors.New("capture: device failed, reset required")
)

// Source captures frames from a camera or other video input device.
type Source interface {
	// Start begins frame capture. It defensively stops any lingering
	// stream from a previous failed stop before opening the device.
	// Starting an already-running source is a no-op. The context
	// bounds the open handshake only; a started stream runs until
	// Stop or Close, regardless of ctx.
	Start(ctx context.Context) error

	// Stop halts capture. It is two-phase: the hardware stop is issued
	// and success is reported only once the hardware acknowledges. On
	// failure the source remains logically running and the error is
	// returned, never swallowed. Stopping a stopped source is a no-op
	// and issues no hardware call.
	Stop() error

	// Frames returns the channel frames are delivered on. Frames that
	// arrive faster than the configured frame-skip threshold, or while
	// the consumer lags, are dropped rather than queued.
	Frames() <-chan Frame

	// Name returns the backend name (e.g. "gocv", "v4l2", "mock").
	Name() string

	// Close releases all device resources. After Close the source
	// cannot be restarted.
	io.Closer
}

// SourceStats contains statistics about a capture source.
type SourceStats struct {
	// FramesRead is the total number of frames delivered.
	FramesRead int64 `json:"frames_read"`

	// Skipped is the number of frames dropped by the frame-skip
	// threshold (device faster than the configured cadence).
	Skipped int64 `json:"skipped"`

	// Dropped is the number of frames dropped because the consumer
	// was not keeping up.
	Dropped int64 `json:"dropped"`

	// Running indicates if the source is currently capturing.
	Running bool `json:"running"`

	// Backend is the name of the capture backend.
	Backend string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
