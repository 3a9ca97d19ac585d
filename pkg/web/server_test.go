package web

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/glyphcam/glyphcam/pkg/app"
	"github.com/glyphcam/glyphcam/pkg/capture"
	"github.com/glyphcam/glyphcam/pkg/glyph"
)

func testGrid(t *testing.T) glyph.Grid {
	t.Helper()

	f := capture.Frame{
		Pix:      make([]byte, 8*4*3),
		Width:    8,
		Height:   4,
		Channels: 3,
	}
	for i := range f.Pix {
		f.Pix[i] = 255
	}

	grid, err := glyph.Convert(f, 2, 4, glyph.Dense, false)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	return grid
}

func TestServer_StatusEndpoint(t *testing.T) {
	s := NewServer(":0", nil)

	pub := s.Publisher()
	pub(app.Status{State: "active", FPS: 24.5, Charset: "dense"}, testGrid(t))

	req, _ := http.NewRequest(http.MethodGet, "/api/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got app.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "active" {
		t.Errorf("State = %q, want %q", got.State, "active")
	}
	if got.Charset != "dense" {
		t.Errorf("Charset = %q, want %q", got.Charset, "dense")
	}
}

func TestServer_FrameEndpoint(t *testing.T) {
	s := NewServer(":0", nil)
	grid := testGrid(t)

	pub := s.Publisher()
	pub(app.Status{State: "active"}, grid)

	req, _ := http.NewRequest(http.MethodGet, "/api/frame", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != grid.String() {
		t.Errorf("frame body = %q, want %q", body, grid.String())
	}
}

func TestServer_FrameEndpointEmpty(t *testing.T) {
	s := NewServer(":0", nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/frame", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
}
