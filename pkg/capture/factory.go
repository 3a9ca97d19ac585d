package capture

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSource creates a new capture source with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = detectBestBackend()
	}

	logger.Info("creating capture source",
		"backend", backend,
		"device", cfg.Device,
		"device_index", cfg.DeviceIndex,
		"fps", cfg.FPS,
		"frame_skip_ms", cfg.FrameSkip.Milliseconds(),
	)

	switch backend {
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	case BackendV4L2:
		return newV4L2Source(cfg, logger)
	case BackendGoCV:
		return newGoCVSource(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// detectBestBackend returns the best available backend for the current
// platform. On Linux the pure-Go V4L2 path needs no OpenCV install.
func detectBestBackend() Backend {
	switch runtime.GOOS {
	case "linux":
		return BackendV4L2
	default:
		return BackendGoCV
	}
}

// AvailableBackends returns the list of backends available on this platform.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock, BackendGoCV}

	if runtime.GOOS == "linux" {
		backends = append(backends, BackendV4L2)
	}

	return backends
}
