//go:build cgo

package capture

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// GoCVSource captures frames through OpenCV's VideoCapture. This is the
// default backend on platforms with OpenCV installed.
type GoCVSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cap      *gocv.VideoCapture
	streamCh chan Frame
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// Stats
	framesRead atomic.Int64
	skipped    atomic.Int64
	dropped    atomic.Int64
}

// newGoCVSource creates a new OpenCV-backed capture source. The device
// is not opened until Start.
func newGoCVSource(cfg Config, logger *slog.Logger) (*GoCVSource, error) {
	s := &GoCVSource{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan Frame, 4),
		stopCh:   make(chan struct{}),
	}

	logger.Info("gocv source created",
		"device_index", cfg.DeviceIndex,
		"resolution", cfg.Width*cfg.Height,
		"fps", cfg.FPS,
	)

	return s, nil
}

// Start opens the device and begins the capture loop. A lingering
// handle from a previously failed stop is closed first; a "was not
// running" style failure there is tolerated.
func (s *GoCVSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if s.cap != nil {
		if err := s.cap.Close(); err != nil {
			s.logger.Warn("closing lingering capture handle", "error", err)
		}
		s.cap = nil
	}

	cap, err := gocv.OpenVideoCapture(s.cfg.DeviceIndex)
	if err != nil {
		return &DeviceError{Op: "open", Backend: s.Name(), Reason: "cannot open device", Err: err}
	}
	if !cap.IsOpened() {
		cap.Close()
		return &DeviceError{Op: "open", Backend: s.Name(), Reason: "device not opened"}
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(s.cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(s.cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(s.cfg.FPS))

	s.cap = cap
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Frame, 4)

	s.wg.Add(1)
	go s.captureLoop(cap)

	s.logger.Info("gocv capture started", "device_index", s.cfg.DeviceIndex)
	return nil
}

// captureLoop reads from the handle it was spawned with and runs until
// stopCh closes. The Start context bounds only the open handshake; the
// handle is owned by the loop until Stop or Close waits it out.
func (s *GoCVSource) captureLoop(cap *gocv.VideoCapture) {
	defer s.wg.Done()

	bgr := gocv.NewMat()
	defer bgr.Close()
	rgb := gocv.NewMat()
	defer rgb.Close()

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if ok := cap.Read(&bgr); !ok || bgr.Empty() {
				s.logger.Debug("gocv: empty read")
				continue
			}

			now := time.Now()
			if !last.IsZero() && now.Sub(last) < s.cfg.FrameSkip {
				s.skipped.Add(1)
				continue
			}
			last = now

			gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)
			frame := Frame{
				Pix:      rgb.ToBytes(),
				Width:    rgb.Cols(),
				Height:   rgb.Rows(),
				Channels: rgb.Channels(),
				Captured: now,
			}
			if err := frame.Validate(); err != nil {
				s.logger.Warn("gocv: dropping malformed frame", "error", err)
				continue
			}

			select {
			case s.streamCh <- frame:
				s.framesRead.Add(1)
			default:
				s.dropped.Add(1)
			}
		}
	}
}

// Stop halts the capture loop and releases the device. Success is
// reported only once OpenCV acknowledges the close; on failure the
// source remains logically running so a later Stop can retry.
func (s *GoCVSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	select {
	case <-s.stopCh:
		// Loop already signalled by a previous failed Stop.
	default:
		close(s.stopCh)
		s.mu.Unlock()
		s.wg.Wait()
		s.mu.Lock()
	}

	if s.cap != nil {
		if err := s.cap.Close(); err != nil {
			return &DeviceError{Op: "stop", Backend: s.Name(), Reason: "device close failed", Err: err}
		}
		s.cap = nil
	}

	s.running = false
	s.logger.Info("gocv capture stopped")
	return nil
}

// Frames returns the frame channel.
func (s *GoCVSource) Frames() <-chan Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Name returns "gocv".
func (s *GoCVSource) Name() string {
	return "gocv"
}

// Close releases all resources. Errors from the final device close are
// reported but the source is unusable either way.
func (s *GoCVSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	running := s.running
	s.running = false
	if running {
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
	}
	cap := s.cap
	s.cap = nil
	s.mu.Unlock()

	if running {
		s.wg.Wait()
	}
	if cap != nil {
		return cap.Close()
	}
	return nil
}

// Stats returns source statistics.
func (s *GoCVSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		FramesRead: s.framesRead.Load(),
		Skipped:    s.skipped.Load(),
		Dropped:    s.dropped.Load(),
		Running:    running,
		Backend:    s.Name(),
	}
}
