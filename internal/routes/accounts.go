package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/ledger"
)

// RegisterAccountRoutes wires the gated ledger endpoints. The caller is
// expected to have attached SessionAuth and IdentityGate to the router.
func RegisterAccountRoutes(r fiber.Router, h *ledger.Handler, idem fiber.Handler) {
	if idem != nil {
		r.Post("/transactions", idem, h.Apply)
	} else {
		r.Post("/transactions", h.Apply)
	}
	r.Get("/transactions", h.History)
	r.Get("/balance", h.Balance)
}
