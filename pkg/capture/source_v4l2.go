//go:build linux

package capture

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackjack/webcam"
)

// V4L2Source captures frames through the kernel V4L2 interface using a
// pure Go implementation. It requires no OpenCV install, at the cost of
// doing its own YUYV decoding.
type V4L2Source struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cam      *webcam.Webcam
	width    int
	height   int
	streamCh chan Frame
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// Stats
	framesRead atomic.Int64
	skipped    atomic.Int64
	dropped    atomic.Int64
}

// newV4L2Source creates a new V4L2 capture source. The device is not
// opened until Start.
func newV4L2Source(cfg Config, logger *slog.Logger) (*V4L2Source, error) {
	s := &V4L2Source{
		cfg:      cfg,
		logger:   logger,
		streamCh: make(chan Frame, 4),
		stopCh:   make(chan struct{}),
	}

	logger.Info("v4l2 source created",
		"device", cfg.Device,
		"fps", cfg.FPS,
	)

	return s, nil
}

// Start opens the device, negotiates a YUYV format and begins the
// capture loop.
func (s *V4L2Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if s.cam != nil {
		// Lingering handle from a failed stop; tolerate errors here.
		if err := s.cam.StopStreaming(); err != nil {
			s.logger.Warn("stopping lingering stream", "error", err)
		}
		s.cam.Close()
		s.cam = nil
	}

	cam, err := webcam.Open(s.cfg.Device)
	if err != nil {
		return &DeviceError{Op: "open", Backend: s.Name(), Reason: s.cfg.Device, Err: err}
	}

	format, ok := findYUYV(cam.GetSupportedFormats())
	if !ok {
		cam.Close()
		return &DeviceError{Op: "open", Backend: s.Name(), Reason: "no YUYV format available"}
	}

	_, w, h, err := cam.SetImageFormat(format, uint32(s.cfg.Width), uint32(s.cfg.Height))
	if err != nil {
		cam.Close()
		return &DeviceError{Op: "open", Backend: s.Name(), Reason: "set image format", Err: err}
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return &DeviceError{Op: "start", Backend: s.Name(), Reason: "start streaming", Err: err}
	}

	s.cam = cam
	s.width = int(w)
	s.height = int(h)
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Frame, 4)

	s.wg.Add(1)
	go s.captureLoop(cam)

	s.logger.Info("v4l2 capture started",
		"device", s.cfg.Device,
		"width", s.width,
		"height", s.height,
	)
	return nil
}

func findYUYV(formats map[webcam.PixelFormat]string) (webcam.PixelFormat, bool) {
	for f, desc := range formats {
		if strings.Contains(desc, "YUYV") {
			return f, true
		}
	}
	return 0, false
}

// captureLoop reads from the handle it was spawned with and runs until
// stopCh closes. The Start context bounds only the open handshake; the
// handle is owned by the loop until Stop or Close waits it out.
func (s *V4L2Source) captureLoop(cam *webcam.Webcam) {
	defer s.wg.Done()

	var last time.Time
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if err := cam.WaitForFrame(1); err != nil {
			if _, timeout := err.(*webcam.Timeout); timeout {
				continue
			}
			s.logger.Error("v4l2: wait for frame", "error", err)
			continue
		}

		raw, err := cam.ReadFrame()
		if err != nil || len(raw) == 0 {
			continue
		}

		now := time.Now()
		if !last.IsZero() && now.Sub(last) < s.cfg.FrameSkip {
			s.skipped.Add(1)
			continue
		}

		if len(raw) < s.width*s.height*2 {
			s.logger.Debug("v4l2: short frame", "bytes", len(raw))
			continue
		}
		last = now

		frame := Frame{
			Pix:      yuyvToRGB(raw, s.width, s.height),
			Width:    s.width,
			Height:   s.height,
			Channels: 3,
			Captured: now,
		}

		select {
		case s.streamCh <- frame:
			s.framesRead.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
}

// yuyvToRGB decodes packed YUYV 4:2:2 into interleaved RGB using BT.601
// integer math. Two output pixels share one chroma sample pair.
func yuyvToRGB(raw []byte, width, height int) []byte {
	out := make([]byte, width*height*3)
	for i, o := 0, 0; i+3 < len(raw) && o+5 < len(out); i, o = i+4, o+6 {
		y0 := int(raw[i])
		u := int(raw[i+1]) - 128
		y1 := int(raw[i+2])
		v := int(raw[i+3]) - 128

		r := (v * 359) >> 8
		g := (u*88 + v*183) >> 8
		b := (u * 454) >> 8

		out[o] = clamp8(y0 + r)
		out[o+1] = clamp8(y0 - g)
		out[o+2] = clamp8(y0 + b)
		out[o+3] = clamp8(y1 + r)
		out[o+4] = clamp8(y1 - g)
		out[o+5] = clamp8(y1 + b)
	}
	return out
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// Stop halts the capture loop and stops streaming. Success is reported
// only once the kernel acknowledges; on failure the source remains
// logically running so a later Stop can retry.
func (s *V4L2Source) Stop() error {
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

	if s.cam != nil {
		if err := s.cam.StopStreaming(); err != nil {
			return &DeviceError{Op: "stop", Backend: s.Name(), Reason: "stop streaming failed", Err: err}
		}
	}

	s.running = false
	s.logger.Info("v4l2 capture stopped")
	return nil
}

// Frames returns the frame channel.
func (s *V4L2Source) Frames() <-chan Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Name returns "v4l2".
func (s *V4L2Source) Name() string {
	return "v4l2"
}

// Close releases all resources.
func (s *V4L2Source) Close() error {
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
	cam := s.cam
	s.cam = nil
	s.mu.Unlock()

	if running {
		s.wg.Wait()
	}
	if cam != nil {
		cam.StopStreaming()
		return cam.Close()
	}
	return nil
}

// Stats returns source statistics.
func (s *V4L2Source) Stats() SourceStats {
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
