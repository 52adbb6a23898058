package server

import (
	"log/slog"

	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to websocket routes.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// InvalidationSocket streams cache invalidation events to a page. Anonymous
// viewers are welcome; signed-in viewers count against a per-user limit.
func (s *Server) InvalidationSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		var userID uint
		if uid, ok := conn.Locals("userID").(uint); ok {
			userID = uid
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
