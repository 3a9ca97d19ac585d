// Package web provides an optional HTTP monitor for the viewer.
//
// The monitor is strictly read-only: it mirrors the latest rendered
// glyph frame and status snapshot over HTTP and websocket, and never
// touches the camera or the terminal.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/glyphcam/glyphcam/pkg/app"
	"github.com/glyphcam/glyphcam/pkg/glyph"
	"github.com/glyphcam/glyphcam/pkg/hub"
)

// Server mirrors viewer state to HTTP and websocket clients
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	// Latest snapshot published by the viewer loop
	mu     sync.RWMutex
	status app.Status
	frame  string

	frameHub  *hub.Hub
	statusHub *hub.Hub
}

// NewServer creates a monitor server listening on addr
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		logger:    logger,
		frameHub:  hub.New("frames", logger),
		statusHub: hub.New("status", logger),
	}

	fa := fiber.New(fiber.Config{
		AppName:               "glyphcam monitor",
		DisableStartupMessage: true,
	})

	// CORS so a local page can poll the API
	fa.Use(cors.New())

	api := fa.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)

	// WebSocket upgrade middleware
	fa.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	fa.Get("/ws/frames", websocket.New(s.handleFramesWS))
	fa.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = fa
	return s
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	go s.frameHub.Run()
	go s.statusHub.Run()

	s.logger.Info("monitor listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("monitor server stopped", "error", err)
		}
	}()
}

// Publisher returns a callback suitable for the viewer loop.
// It records the snapshot and fans it out to websocket clients.
func (s *Server) Publisher() app.Publisher {
	return func(status app.Status, grid glyph.Grid) {
		text := grid.String()

		s.mu.Lock()
		s.status = status
		s.frame = text
		s.mu.Unlock()

		if err := s.statusHub.BroadcastJSON(status); err != nil {
			s.logger.Debug("status broadcast failed", "error", err)
		}
		if text != "" {
			s.frameHub.BroadcastText([]byte(text))
		}
	}
}

// Shutdown gracefully stops the server and its hubs
func (s *Server) Shutdown() error {
	s.frameHub.Stop()
	s.statusHub.Stop()
	return s.app.Shutdown()
}
