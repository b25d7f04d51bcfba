package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/session"
)

// RegisterSessionRoutes wires the two-factor authentication endpoints.
// The PIN route carries a rate limiter when one is supplied.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler, pinLimiter fiber.Handler) {
	group := r.Group("/sessions")
	group.Post("", h.Begin)
	group.Post("/:sessionID/face", h.SubmitFace)
	if pinLimiter != nil {
		group.Post("/:sessionID/pin", pinLimiter, h.SubmitPin)
	} else {
		group.Post("/:sessionID/pin", h.SubmitPin)
	}
	group.Post("/:sessionID/restart", h.Restart)
	group.Delete("/:sessionID", h.End)
}
