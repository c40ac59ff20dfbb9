// Package server wires the fiber application: REST endpoints for auth and
// messages, the websocket upgrade path, and the status page.
package server

import (
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"quick-chat/auth"
	"quick-chat/observability"
)

type Router struct {
	log        *slog.Logger
	authH      *AuthHandler
	messageH   *MessageHandler
	wsH        *WsHandler
	monitoring *observability.MonitoringManager
}

func NewRouter(log *slog.Logger, authH *AuthHandler, messageH *MessageHandler,
	wsH *WsHandler, monitoring *observability.MonitoringManager) *Router {
	return &Router{log: log, authH: authH, messageH: messageH, wsH: wsH, monitoring: monitoring}
}

// Build registers every route on a fresh fiber app.
func (r *Router) Build() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024, // data-URL image uploads
	})

	app.Get("/api/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"status":  "Server is running",
			"stats":   r.monitoring.GetLatest(),
		})
	})

	authGroup := app.Group("/api/auth")
	authGroup.Post("/signup", r.authH.Signup)
	authGroup.Post("/login", r.authH.Login)
	authGroup.Get("/check", auth.Middleware(), r.authH.Check)
	authGroup.Put("/update-profile", auth.Middleware(), r.authH.UpdateProfile)

	messages := app.Group("/api/messages", auth.Middleware())
	messages.Get("/users", r.messageH.Users)
	messages.Get("/search", r.messageH.Search)
	messages.Put("/mark/:id", r.messageH.MarkSeen)
	messages.Post("/send/:id", r.messageH.Send)
	messages.Get("/:id", r.messageH.Conversation)

	app.Get("/media/:ref", r.messageH.Media)

	app.Get("/api/ws", auth.Middleware(), r.wsH.Upgrade, websocket.New(r.wsH.Handle))

	return app
}
