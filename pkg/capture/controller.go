package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the authoritative camera lifecycle state. The externally
// visible "active" flag changes only on a confirmed hardware
// transition, never optimistically before the hardware call resolves.
type State int

const (
	// StateStopped means the device is confirmed stopped.
	StateStopped State = iota
	// StateStarting means a start was issued and is awaiting hardware ack.
	StateStarting
	// StateActive means the device is confirmed capturing.
	StateActive
	// StateStopping means a stop was issued and is awaiting hardware ack.
	StateStopping
	// StateFailed means force-stop retries were exhausted; only Reset
	// clears it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// forceStopRetries bounds the emergency stop path.
const forceStopRetries = 3

// SourceFactory builds a capture source. The Controller uses it for the
// initial source and again on Reset, when device resources are fully
// torn down and reinitialized.
type SourceFactory func() (Source, error)

// Controller is the single authoritative owner of the capture device.
// All hardware start/stop goes through its state machine; the raw
// source handle is never exposed.
//
// Transitions:
//
//	Stopped  -Start-> Starting -ack ok->  Active
//	Active   -Stop->  Stopping -ack ok->  Stopped
//	Stopping -ack fail-> Active (reverts, error surfaced)
//	any      -ForceStop retries exhausted-> Failed
//	Failed   -Reset-> Stopped
//
// Start and Stop requests made while a transition is in flight return
// ErrTransitioning without issuing a second hardware call.
type Controller struct {
	factory SourceFactory
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	src     Source
	lastErr error
}

// NewController creates a Controller owning a source built from the
// factory. The device itself is not opened until Start.
func NewController(factory SourceFactory, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src, err := factory()
	if err != nil {
		return nil, fmt.Errorf("creating capture source: %w", err)
	}

	return &Controller{
		factory: factory,
		logger:  logger,
		state:   StateStopped,
		src:     src,
	}, nil
}

// Start transitions Stopped -> Starting -> Active. The active flag is
// only set once the hardware acknowledges; on failure the state returns
// to Stopped and the error is reported.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateActive:
		c.mu.Unlock()
		return nil
	case StateStarting, StateStopping:
		c.mu.Unlock()
		return ErrTransitioning
	case StateFailed:
		err := c.lastErr
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrDeviceFailed, err)
	}
	c.state = StateStarting
	src := c.src
	c.mu.Unlock()

	err := src.Start(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateStopped
		c.lastErr = err
		c.logger.Error("camera start failed", "error", err)
		return err
	}
	c.state = StateActive
	c.lastErr = nil
	c.logger.Info("camera active", "backend", src.Name())
	return nil
}

// Stop transitions Active -> Stopping -> Stopped. If the hardware stop
// fails, the state reverts to Active: the indicator light is still on
// and software must not claim otherwise. Stopping an already stopped
// camera is a no-op and issues no hardware call.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case StateStopped:
		c.mu.Unlock()
		return nil
	case StateStarting, StateStopping:
		c.mu.Unlock()
		return ErrTransitioning
	case StateFailed:
		c.mu.Unlock()
		return ErrDeviceFailed
	}
	c.state = StateStopping
	src := c.src
	c.mu.Unlock()

	err := src.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateActive
		c.lastErr = err
		c.logger.Error("camera stop failed, still active", "error", err)
		return err
	}
	c.state = StateStopped
	c.lastErr = nil
	c.logger.Info("camera stopped")
	return nil
}

// ForceStop is the emergency path: it retries the hardware stop a fixed
// number of times and, if all attempts fail, marks the device Failed.
// Until Reset, start requests are rejected.
func (c *Controller) ForceStop() error {
	c.mu.Lock()
	switch c.state {
	case StateStopped:
		c.mu.Unlock()
		return nil
	case StateFailed:
		c.mu.Unlock()
		return ErrDeviceFailed
	}
	c.state = StateStopping
	src := c.src
	c.mu.Unlock()

	var err error
	for attempt := 1; attempt <= forceStopRetries; attempt++ {
		if err = src.Stop(); err == nil {
			c.mu.Lock()
			c.state = StateStopped
			c.lastErr = nil
			c.mu.Unlock()
			c.logger.Info("camera force-stopped", "attempt", attempt)
			return nil
		}
		c.logger.Warn("force stop attempt failed",
			"attempt", attempt,
			"error", err,
		)
	}

	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = err
	c.mu.Unlock()
	c.logger.Error("force stop exhausted retries, device failed", "error", err)
	return fmt.Errorf("%w: %v", ErrDeviceFailed, err)
}

// Reset fully tears down device resources and reinitializes them from
// the factory. It is the only way out of Failed, and from Stopped it
// rebuilds the source so a changed device selection takes effect.
func (c *Controller) Reset() error {
	c.mu.Lock()
	switch c.state {
	case StateFailed, StateStopped:
	default:
		c.mu.Unlock()
		return fmt.Errorf("reset requires a stopped or failed camera, currently %s", c.state)
	}
	old := c.src
	c.mu.Unlock()

	if err := old.Close(); err != nil {
		c.logger.Warn("closing failed device", "error", err)
	}

	src, err := c.factory()
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return fmt.Errorf("reinitializing capture source: %w", err)
	}

	c.mu.Lock()
	c.src = src
	c.state = StateStopped
	c.lastErr = nil
	c.mu.Unlock()
	c.logger.Info("camera reset")
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsActive reports whether the camera is confirmed capturing. True if
// and only if the last hardware acknowledgment was a successful start
// with no subsequent successful stop.
func (c *Controller) IsActive() bool {
	return c.State() == StateActive
}

// Err returns the last device error, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Frames returns the current source's frame channel.
func (c *Controller) Frames() <-chan Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src.Frames()
}

// Stats returns source statistics when the backend provides them.
func (c *Controller) Stats() SourceStats {
	c.mu.Lock()
	src := c.src
	state := c.state
	c.mu.Unlock()

	if ws, ok := src.(SourceWithStats); ok {
		return ws.Stats()
	}
	return SourceStats{Running: state == StateActive, Backend: src.Name()}
}

// Shutdown attempts a final best-effort hardware stop bounded by the
// timeout. A hung device must not block process exit, so the result of
// an overrunning stop is abandoned.
func (c *Controller) Shutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if c.IsActive() {
			if err := c.Stop(); err != nil {
				c.logger.Error("final camera stop failed, escalating", "error", err)
				if err := c.ForceStop(); err != nil {
					c.logger.Error("emergency stop failed", "error", err)
				}
			}
		}
		c.mu.Lock()
		src := c.src
		c.mu.Unlock()
		if err := src.Close(); err != nil {
			c.logger.Error("closing capture source", "error", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Error("camera shutdown timed out, abandoning device")
	}
}
