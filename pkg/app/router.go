package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/glyphcam/glyphcam/pkg/capture"
	"github.com/glyphcam/glyphcam/pkg/glyph"
)

// Status is the single surface for user-visible state: normal state and
// failures both travel through it to the status line and the monitor.
type Status struct {
	State   string              `json:"state"`
	FPS     float64             `json:"fps"`
	Charset string              `json:"charset"`
	Scale   float64             `json:"scale"`
	Color   bool                `json:"color"`
	Camera  int                 `json:"camera"`
	Message string              `json:"message,omitempty"`
	Capture capture.SourceStats `json:"capture"`
}

// Renderer paints a glyph grid and status text to the terminal. It is
// assumed synchronous and fast relative to the render interval.
type Renderer interface {
	// Render replaces the displayed grid and status.
	Render(grid glyph.Grid, status Status) error

	// Size returns the terminal size in cells.
	Size() (cols, rows int)
}

// Publisher receives each rendered snapshot, e.g. for the monitor server.
type Publisher func(Status, glyph.Grid)

// CameraSwitcher retargets capture to another device index. It may
// block on hardware and is always invoked off the router goroutine.
type CameraSwitcher func(index int) error

// Option configures a Router.
type Option func(*Router)

// WithTickInterval sets the control loop tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(r *Router) { r.tickInterval = d }
}

// WithRenderInterval sets the minimum time between two grid productions.
func WithRenderInterval(d time.Duration) Option {
	return func(r *Router) { r.renderInterval = d }
}

// WithOpTimeout bounds asynchronous camera transitions.
func WithOpTimeout(d time.Duration) Option {
	return func(r *Router) { r.opTimeout = d }
}

// WithPublisher registers a snapshot consumer.
func WithPublisher(p Publisher) Option {
	return func(r *Router) { r.publish = p }
}

// WithCameraSwitcher enables the next/previous camera commands across
// count devices.
func WithCameraSwitcher(count int, s CameraSwitcher) Option {
	return func(r *Router) {
		r.cameraCount = count
		r.switchCamera = s
	}
}

// Router is the single control loop merging three event sources: the
// tick clock, user commands and captured frames. Commands are applied
// in arrival order before any frame work; of the frames drained in one
// iteration only the most recent is kept, so per-tick camera work is
// O(1) regardless of burst size. Hardware transitions run in their own
// goroutine and report back as events, so a slow camera stop can never
// stall input handling.
type Router struct {
	controller *capture.Controller
	renderer   Renderer
	logger     *slog.Logger

	tickInterval   time.Duration
	renderInterval time.Duration
	opTimeout      time.Duration

	events chan Event

	settings   Settings
	staged     []Event
	pending    *capture.Frame
	grid       glyph.Grid
	lastRender time.Time
	message    string
	quit       bool
	fps        fpsCounter

	coalesced   atomic.Int64
	conversions atomic.Int64

	publish      Publisher
	switchCamera CameraSwitcher
	cameraCount  int
}

// NewRouter creates a control loop around the camera controller and
// renderer.
func NewRouter(controller *capture.Controller, renderer Renderer, settings Settings, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		controller:     controller,
		renderer:       renderer,
		logger:         logger,
		tickInterval:   50 * time.Millisecond,
		renderInterval: 100 * time.Millisecond,
		opTimeout:      5 * time.Second,
		events:         make(chan Event, 256),
		settings:       settings,
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Post delivers an event to the loop without ever blocking the caller.
// Under pressure frames are dropped silently (a newer one is coming);
// losing a control event is logged, though with the drain running every
// tick the queue does not realistically fill.
func (r *Router) Post(ev Event) {
	select {
	case r.events <- ev:
	default:
		if ev.Kind == EventFrame {
			r.coalesced.Add(1)
			return
		}
		r.logger.Warn("event queue full, dropping control event", "kind", ev.Kind)
	}
}

// Settings returns the current settings snapshot.
func (r *Router) Settings() Settings {
	return r.settings
}

// Run executes the control loop until a quit command or context
// cancellation. Each iteration waits at most one tick interval, drains
// everything available without blocking, applies control events first,
// then converts at most the newest frame when a render is due.
func (r *Router) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	// First paint so the UI appears before any event arrives.
	r.render(time.Now())

	for {
		frames := r.controller.Frames()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case ev := <-r.events:
			r.stage(ev)
		case f := <-frames:
			r.stageFrame(f)
		}

		r.drain(frames)
		if r.processStaged() {
			r.logger.Info("quit", "frames_coalesced", r.coalesced.Load())
			return nil
		}
		r.maybeRender(time.Now())
	}
}

// drain empties both queues without blocking.
func (r *Router) drain(frames <-chan capture.Frame) {
	for {
		select {
		case ev := <-r.events:
			r.stage(ev)
		case f := <-frames:
			r.stageFrame(f)
		default:
			return
		}
	}
}

// stage partitions a drained event: frames go to the single pending
// slot, everything else queues for in-order processing.
func (r *Router) stage(ev Event) {
	if ev.Kind == EventFrame {
		r.stageFrame(ev.Frame)
		return
	}
	r.staged = append(r.staged, ev)
}

// stageFrame overwrites the pending slot; older unprocessed frames are
// discarded, never queued.
func (r *Router) stageFrame(f capture.Frame) {
	if r.pending != nil {
		r.coalesced.Add(1)
	}
	r.pending = &f
}

// processStaged applies every staged control event in arrival order and
// reports whether quit was observed. All control events of the
// iteration are still applied after a quit; no frame is processed
// after one.
func (r *Router) processStaged() bool {
	staged := r.staged
	r.staged = r.staged[:0]
	for _, ev := range staged {
		r.applyControl(ev)
	}
	return r.quit
}

func (r *Router) applyControl(ev Event) {
	switch ev.Kind {
	case EventCommand:
		r.applyCommand(ev.Cmd)
	case EventResize:
		// Force a repaint at the new geometry.
		r.lastRender = time.Time{}
	case EventCameraAck:
		if ev.Err != nil {
			r.message = ev.Err.Error()
			if errors.Is(ev.Err, capture.ErrDeviceFailed) {
				r.message += " - press r to reset"
			}
			r.logger.Error("camera transition failed", "error", ev.Err)
			return
		}
		r.message = ev.Note
	}
}

func (r *Router) applyCommand(cmd Command) {
	r.logger.Debug("command", "cmd", cmd.String())
	switch cmd {
	case CommandQuit:
		r.quit = true

	case CommandToggleCamera:
		switch r.controller.State() {
		case capture.StateStarting, capture.StateStopping:
			r.message = "camera busy"
		case capture.StateActive:
			r.asyncCamera("stopping camera...", "camera stopped", func(ctx context.Context) error {
				return r.controller.Stop()
			})
		default:
			r.asyncCamera("starting camera...", "camera active", func(ctx context.Context) error {
				return r.controller.Start(ctx)
			})
		}

	case CommandResetCamera:
		r.asyncCamera("resetting camera...", "camera reset", func(ctx context.Context) error {
			return r.controller.Reset()
		})

	case CommandForceStopCamera:
		r.asyncCamera("force stopping camera...", "camera stopped", func(ctx context.Context) error {
			return r.controller.ForceStop()
		})

	case CommandToggleColor:
		r.settings.Color = !r.settings.Color

	case CommandNextCharacterSet:
		r.settings.CharsetIndex = glyph.NextSet(r.settings.CharsetIndex)

	case CommandPreviousCharacterSet:
		r.settings.CharsetIndex = glyph.PreviousSet(r.settings.CharsetIndex)

	case CommandIncreaseScale:
		r.settings.IncreaseScale()

	case CommandDecreaseScale:
		r.settings.DecreaseScale()

	case CommandNextCamera:
		r.cycleCamera(1)

	case CommandPreviousCamera:
		r.cycleCamera(-1)
	}
}

func (r *Router) cycleCamera(delta int) {
	if r.switchCamera == nil || r.cameraCount < 2 {
		r.message = "only one camera available"
		return
	}
	next := (r.settings.CameraIndex + delta + r.cameraCount) % r.cameraCount
	r.settings.CameraIndex = next
	switcher := r.switchCamera
	r.asyncCamera("switching camera...", "camera switched", func(ctx context.Context) error {
		return switcher(next)
	})
}

// asyncCamera runs a hardware transition off the loop goroutine and
// reports the ack back as an event.
func (r *Router) asyncCamera(busyNote, okNote string, fn func(context.Context) error) {
	r.message = busyNote
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
		defer cancel()
		err := fn(ctx)
		r.Post(Event{Kind: EventCameraAck, Note: okNote, Err: err})
	}()
}

// maybeRender converts the pending frame and repaints, but only when
// the render interval has elapsed; otherwise the pending frame stays
// in its slot for the next due tick.
func (r *Router) maybeRender(now time.Time) {
	if !r.lastRender.IsZero() && now.Sub(r.lastRender) < r.renderInterval {
		return
	}

	if r.pending != nil {
		f := *r.pending
		r.pending = nil

		cols, rows := r.renderer.Size()
		gridRows, gridCols := r.settings.GridSize(cols, rows)
		grid, err := glyph.Convert(f, gridRows, gridCols, r.settings.Charset(), r.settings.Color)
		if err != nil {
			// Malformed frame: keep the previous grid on screen.
			r.logger.Warn("dropping malformed frame", "error", err)
		} else {
			r.grid = grid
			r.conversions.Add(1)
			r.fps.frame(now)
		}
	}

	r.render(now)
}

func (r *Router) render(now time.Time) {
	status := r.status()
	if err := r.renderer.Render(r.grid, status); err != nil {
		r.logger.Error("render failed", "error", err)
	}
	if r.publish != nil {
		r.publish(status, r.grid)
	}
	r.lastRender = now
}

func (r *Router) status() Status {
	state := r.controller.State()
	msg := r.message
	if msg == "" && state == capture.StateStopped {
		msg = "press space to start camera"
	}
	return Status{
		State:   state.String(),
		FPS:     r.fps.value(),
		Charset: r.settings.Charset().Name,
		Scale:   r.settings.Scale,
		Color:   r.settings.Color,
		Camera:  r.settings.CameraIndex,
		Message: msg,
		Capture: r.controller.Stats(),
	}
}
