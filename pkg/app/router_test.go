package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glyphcam/glyphcam/pkg/capture"
	"github.com/glyphcam/glyphcam/pkg/glyph"
)

type fakeRenderer struct {
	mu      sync.Mutex
	cols    int
	rows    int
	renders int
	grid    glyph.Grid
	status  Status
}

func (f *fakeRenderer) Render(grid glyph.Grid, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	f.grid = grid
	f.status = status
	return nil
}

func (f *fakeRenderer) Size() (int, int) {
	return f.cols, f.rows
}

func (f *fakeRenderer) snapshot() (int, glyph.Grid, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renders, f.grid, f.status
}

func testCaptureConfig() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.Backend = capture.BackendMock
	cfg.Width = 32
	cfg.Height = 32
	cfg.FPS = 100
	cfg.FrameSkip = 0
	return cfg
}

func newTestRouter(t *testing.T, opts ...Option) (*Router, *fakeRenderer, *capture.Controller) {
	t.Helper()

	ctrl, err := capture.NewController(func() (capture.Source, error) {
		return capture.NewMockSource(testCaptureConfig(), nil), nil
	}, nil)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	renderer := &fakeRenderer{cols: 80, rows: 26}
	r := NewRouter(ctrl, renderer, DefaultSettings(), nil, opts...)
	return r, renderer, ctrl
}

func grayFrame(w, h int, v uint8) capture.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = v
	}
	return capture.Frame{Pix: pix, Width: w, Height: h, Channels: 3, Captured: time.Now()}
}

func TestRouter_InputPriority(t *testing.T) {
	// N frames and one control event drained in the same iteration: the
	// control's effect must be visible in the very next produced grid,
	// never delayed behind the frames.
	r, renderer, _ := newTestRouter(t)

	for i := 0; i < 9; i++ {
		r.stage(Event{Kind: EventFrame, Frame: grayFrame(32, 32, 0)})
	}
	r.stage(Event{Kind: EventFrame, Frame: grayFrame(32, 32, 255)})
	r.stage(Event{Kind: EventCommand, Cmd: CommandNextCharacterSet})

	if quit := r.processStaged(); quit {
		t.Fatal("unexpected quit")
	}
	r.maybeRender(time.Now())

	renders, grid, status := renderer.snapshot()
	if renders != 1 {
		t.Fatalf("renders = %d, want 1", renders)
	}
	wantSet := glyph.Sets[1]
	if status.Charset != wantSet.Name {
		t.Fatalf("status charset = %s, want %s (command delayed by frames)", status.Charset, wantSet.Name)
	}

	// The grid must come from the newest (all-white) frame, mapped
	// through the new charset's brightest glyph.
	want := wantSet.Glyphs[wantSet.Len()-1]
	if got := grid.Cells[0][0].Ch; got != want {
		t.Fatalf("cell = %q, want %q: either a stale frame or the old charset was used", got, want)
	}
	if got := r.conversions.Load(); got != 1 {
		t.Fatalf("conversions = %d, want exactly 1 for the whole burst", got)
	}
}

func TestRouter_FrameCoalescing(t *testing.T) {
	r, _, _ := newTestRouter(t)

	for i := 0; i < 5; i++ {
		r.stageFrame(grayFrame(32, 32, uint8(i*50)))
	}
	r.processStaged()
	r.maybeRender(time.Now())

	if got := r.conversions.Load(); got != 1 {
		t.Fatalf("conversions = %d, want 1", got)
	}
	if got := r.coalesced.Load(); got != 4 {
		t.Fatalf("coalesced = %d, want 4", got)
	}
	if r.pending != nil {
		t.Fatal("pending frame left after conversion")
	}
}

func TestRouter_RenderIntervalGating(t *testing.T) {
	r, _, _ := newTestRouter(t, WithRenderInterval(100*time.Millisecond))

	now := time.Now()
	r.lastRender = now

	r.stageFrame(grayFrame(32, 32, 128))
	r.maybeRender(now.Add(10 * time.Millisecond))

	// Not yet due: the frame is retained in the pending slot, not
	// converted and not discarded.
	if got := r.conversions.Load(); got != 0 {
		t.Fatalf("conversions = %d before render interval elapsed", got)
	}
	if r.pending == nil {
		t.Fatal("pending frame was not retained")
	}

	r.maybeRender(now.Add(150 * time.Millisecond))
	if got := r.conversions.Load(); got != 1 {
		t.Fatalf("conversions = %d after render due, want 1", got)
	}
	if r.pending != nil {
		t.Fatal("pending frame not consumed by due render")
	}
}

func TestRouter_QuitProcessesAllControls(t *testing.T) {
	r, _, _ := newTestRouter(t)

	r.stage(Event{Kind: EventFrame, Frame: grayFrame(32, 32, 128)})
	r.stage(Event{Kind: EventCommand, Cmd: CommandQuit})
	r.stage(Event{Kind: EventCommand, Cmd: CommandToggleColor})

	if quit := r.processStaged(); !quit {
		t.Fatal("quit not observed")
	}
	// Control events after the quit in the same iteration still apply.
	if !r.settings.Color {
		t.Fatal("control event after quit was not processed")
	}
	// No frame is processed after quit: Run returns before maybeRender.
	if got := r.conversions.Load(); got != 0 {
		t.Fatalf("conversions = %d, want 0 after quit", got)
	}
}

func TestRouter_MalformedFrameKeepsPriorGrid(t *testing.T) {
	r, renderer, _ := newTestRouter(t)

	r.stageFrame(grayFrame(32, 32, 255))
	r.maybeRender(time.Now())
	_, prior, _ := renderer.snapshot()
	if prior.Empty() {
		t.Fatal("no grid produced from a valid frame")
	}

	bad := capture.Frame{Pix: make([]byte, 7), Width: 32, Height: 32, Channels: 3}
	r.stageFrame(bad)
	r.maybeRender(time.Now().Add(time.Hour))

	_, after, _ := renderer.snapshot()
	if after.String() != prior.String() {
		t.Fatal("malformed frame replaced the prior grid")
	}
	if got := r.conversions.Load(); got != 1 {
		t.Fatalf("conversions = %d, want 1", got)
	}
}

func TestRouter_ResizeForcesRepaint(t *testing.T) {
	r, renderer, _ := newTestRouter(t, WithRenderInterval(time.Hour))

	now := time.Now()
	r.render(now)
	before, _, _ := renderer.snapshot()

	// Without the resize the next maybeRender would be gated.
	r.stage(Event{Kind: EventResize, Cols: 120, Rows: 40})
	r.processStaged()
	r.maybeRender(now.Add(time.Millisecond))

	after, _, _ := renderer.snapshot()
	if after != before+1 {
		t.Fatalf("renders = %d, want %d after resize", after, before+1)
	}
}

func TestRouter_ScaleAndColorCommands(t *testing.T) {
	r, _, _ := newTestRouter(t)

	r.applyCommand(CommandIncreaseScale)
	if r.settings.Scale <= 1.0 {
		t.Fatalf("scale = %v after increase", r.settings.Scale)
	}
	for i := 0; i < 50; i++ {
		r.applyCommand(CommandDecreaseScale)
	}
	if r.settings.Scale < minScale {
		t.Fatalf("scale = %v below minimum", r.settings.Scale)
	}
	r.applyCommand(CommandToggleColor)
	if !r.settings.Color {
		t.Fatal("color not toggled on")
	}
	r.applyCommand(CommandPreviousCharacterSet)
	if r.settings.CharsetIndex != len(glyph.Sets)-1 {
		t.Fatalf("charset index = %d, want wrap to %d", r.settings.CharsetIndex, len(glyph.Sets)-1)
	}
}

func TestRouter_ToggleCameraEndToEnd(t *testing.T) {
	r, renderer, ctrl := newTestRouter(t,
		WithTickInterval(5*time.Millisecond),
		WithRenderInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	r.Post(Event{Kind: EventCommand, Cmd: CommandToggleCamera})
	if err := waitFor(ctx, ctrl.IsActive); err != nil {
		t.Fatalf("camera never became active: %v", err)
	}

	// Live frames must flow through to rendered grids.
	if err := waitFor(ctx, func() bool {
		_, grid, _ := renderer.snapshot()
		return !grid.Empty()
	}); err != nil {
		t.Fatalf("no grid rendered from live frames: %v", err)
	}

	r.Post(Event{Kind: EventCommand, Cmd: CommandToggleCamera})
	if err := waitFor(ctx, func() bool { return !ctrl.IsActive() }); err != nil {
		t.Fatalf("camera never stopped: %v", err)
	}

	r.Post(Event{Kind: EventCommand, Cmd: CommandQuit})
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on user quit", err)
		}
	case <-ctx.Done():
		t.Fatal("router did not exit on quit")
	}
}

func waitFor(ctx context.Context, cond func() bool) error {
	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("condition not met: %w", ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRouter_ForceStopFailureOffersReset(t *testing.T) {
	// A device refusing every stop: the emergency command must drive
	// the camera to failed, surface the reset hint, and reset must
	// bring it back.
	ctrl, err := capture.NewController(func() (capture.Source, error) {
		return capture.NewMockSource(testCaptureConfig(), nil, capture.WithStopFailures(10)), nil
	}, nil)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	renderer := &fakeRenderer{cols: 80, rows: 26}
	r := NewRouter(ctrl, renderer, DefaultSettings(), nil)

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	r.applyCommand(CommandForceStopCamera)
	r.applyControl(nextEvent(t, r))

	if got := ctrl.State(); got != capture.StateFailed {
		t.Fatalf("state = %s, want failed", got)
	}
	if msg := r.status().Message; !strings.Contains(msg, "press r to reset") {
		t.Fatalf("status message = %q, want reset hint", msg)
	}

	r.applyCommand(CommandResetCamera)
	r.applyControl(nextEvent(t, r))

	if got := ctrl.State(); got != capture.StateStopped {
		t.Fatalf("state after reset = %s, want stopped", got)
	}
}

// nextEvent waits for the ack posted by an asynchronous camera command.
func nextEvent(t *testing.T, r *Router) Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no ack event posted")
		return Event{}
	}
}

func TestRouter_FailedDeviceSurfacedInStatus(t *testing.T) {
	r, _, _ := newTestRouter(t)

	r.applyControl(Event{Kind: EventCameraAck, Err: capture.ErrDeviceFailed})
	status := r.status()
	if status.Message == "" {
		t.Fatal("device failure not surfaced in status")
	}
}
