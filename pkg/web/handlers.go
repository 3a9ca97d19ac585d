package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/glyphcam/glyphcam/pkg/hub"
)

// handleStatus returns the latest status snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.status)
}

// handleFrame returns the latest rendered frame as plain text
func (s *Server) handleFrame(c *fiber.Ctx) error {
	s.mu.RLock()
	frame := s.frame
	s.mu.RUnlock()

	if frame == "" {
		return c.Status(fiber.StatusNoContent).SendString("")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(frame)
}

// handleFramesWS streams rendered frames to a websocket client
func (s *Server) handleFramesWS(c *websocket.Conn) {
	// Seed the client with the latest frame before streaming
	s.mu.RLock()
	frame := s.frame
	s.mu.RUnlock()
	if frame != "" {
		c.WriteMessage(websocket.TextMessage, []byte(frame))
	}

	hub.ServeWS(s.frameHub, c)
}

// handleStatusWS streams status snapshots to a websocket client
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()
	c.WriteJSON(status)

	hub.ServeWS(s.statusHub, c)
}
