package api

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/sync-service/internal/auth"
	"github.com/fathima-sithara/sync-service/internal/ws"
)

// NewServer wires middleware and routes into a fiber app.
func NewServer(h *Handlers, wsrv *ws.Server, validator *auth.Validator, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(Recovery(log))
	app.Use(RequestLogger(log))

	app.Get("/healthz", h.health)

	v1 := app.Group("/v1", JWTAuth(validator))
	v1.Post("/messages", h.sendMessage)
	v1.Post("/messages/:msg_id/reactions", h.react)
	v1.Delete("/messages/:msg_id", h.unsendMessage)
	v1.Post("/messages/:msg_id/translation", h.setTranslation)
	v1.Get("/conversations/:peer_id/messages", h.listMessages)
	v1.Post("/conversations/:peer_id/read", h.markRead)
	v1.Delete("/conversations/:peer_id", h.deleteConversation)
	v1.Post("/media/upload-url", h.mediaUploadURL)
	v1.Post("/media/upload", h.uploadMedia)

	v1.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	v1.Get("/ws", fiberws.New(wsrv.HandleWS))

	return app
}
