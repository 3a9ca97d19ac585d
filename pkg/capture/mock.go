package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is a mock capture source for testing. It generates
// synthetic frames (a moving horizontal gradient) and can be told to
// fail a number of start or stop calls to exercise the state machine.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan Frame
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// Stats
	framesRead atomic.Int64
	skipped    atomic.Int64
	dropped    atomic.Int64

	// Hardware call accounting
	startCalls atomic.Int64
	stopCalls  atomic.Int64

	// Failure injection: each failing call decrements the counter.
	startFailures int
	stopFailures  int

	seq int
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithStartFailures makes the next n Start calls fail with a simulated
// hardware error.
func WithStartFailures(n int) MockSourceOption {
	return func(m *MockSource) {
		m.startFailures = n
	}
}

// WithStopFailures makes the next n Stop calls fail with a simulated
// hardware error, leaving the source logically running.
func WithStopFailures(n int) MockSourceOption {
	return func(m *MockSource) {
		m.stopFailures = n
	}
}

// NewMockSource creates a new mock capture source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan Frame, 4),
		stopCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins synthetic frame generation.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.startCalls.Add(1)
	if m.startFailures > 0 {
		m.startFailures--
		return &DeviceError{Op: "start", Backend: m.Name(), Reason: "simulated open failure"}
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan Frame, 4)

	m.wg.Add(1)
	go m.generateLoop()

	return nil
}

// generateLoop runs until stopCh closes. The Start context bounds only
// the start handshake, never the stream lifetime.
func (m *MockSource) generateLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval())
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			if !last.IsZero() && now.Sub(last) < m.cfg.FrameSkip {
				m.skipped.Add(1)
				continue
			}
			last = now

			frame := m.synthesize(now)
			select {
			case m.streamCh <- frame:
				m.framesRead.Add(1)
			default:
				m.dropped.Add(1)
			}
		}
	}
}

// synthesize produces a horizontal gradient that shifts each frame so
// consumers can tell frames apart.
func (m *MockSource) synthesize(now time.Time) Frame {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	w, h := m.cfg.Width, m.cfg.Height
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte((x*256/w + seq) % 256)
			i := (y*w + x) * 3
			pix[i] = v
			pix[i+1] = v
			pix[i+2] = v
		}
	}
	return Frame{Pix: pix, Width: w, Height: h, Channels: 3, Captured: now}
}

// Stop halts frame generation. With injected stop failures the source
// stays running and returns the simulated hardware error.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	m.stopCalls.Add(1)
	if m.stopFailures > 0 {
		m.stopFailures--
		return &DeviceError{Op: "stop", Backend: m.Name(), Reason: "simulated stop failure"}
	}

	close(m.stopCh)
	m.mu.Unlock()
	m.wg.Wait()
	m.mu.Lock()

	m.running = false
	return nil
}

// Frames returns the frame channel.
func (m *MockSource) Frames() <-chan Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCh
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases the source. After Close it cannot be restarted.
func (m *MockSource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	running := m.running
	if running {
		close(m.stopCh)
		m.running = false
	}
	m.mu.Unlock()

	if running {
		m.wg.Wait()
	}
	return nil
}

// Stats returns source statistics.
func (m *MockSource) Stats() SourceStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SourceStats{
		FramesRead: m.framesRead.Load(),
		Skipped:    m.skipped.Load(),
		Dropped:    m.dropped.Load(),
		Running:    running,
		Backend:    m.Name(),
	}
}

// StartCalls reports how many hardware start calls were issued.
func (m *MockSource) StartCalls() int64 {
	return m.startCalls.Load()
}

// StopCalls reports how many hardware stop calls were issued.
func (m *MockSource) StopCalls() int64 {
	return m.stopCalls.Load()
}
