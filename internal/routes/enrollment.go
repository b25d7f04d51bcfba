package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/enrollment"
)

// RegisterEnrollmentRoutes wires identity onboarding endpoints.
func RegisterEnrollmentRoutes(r fiber.Router, h *enrollment.Handler) {
	r.Post("/enroll", h.Enroll)
}
