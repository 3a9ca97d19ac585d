//go:build !cgo

package capture

import (
	"fmt"
	"log/slog"
)

// newGoCVSource returns an error when built without cgo, since gocv
// requires OpenCV via cgo.
func newGoCVSource(cfg Config, logger *slog.Logger) (Source, error) {
	return nil, fmt.Errorf("gocv backend requires cgo (built with CGO_ENABLED=0)")
}
