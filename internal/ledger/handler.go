package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/money"
)

// Handler exposes the account ledger endpoints. Authorization is handled
// upstream: the session middleware and identity gate run before any of
// these are reached.
type Handler struct {
	service *Service
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transactionRequest struct {
	Kind   string      `json:"kind"`
	Amount json.Number `json:"amount"`
}

type transactionPayload struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

func toPayload(tx Transaction) transactionPayload {
	return transactionPayload{
		ID:        tx.ID,
		Kind:      tx.Kind,
		Amount:    money.Format(tx.Amount),
		CreatedAt: tx.CreatedAt.Format(time.RFC3339Nano),
	}
}

// Apply posts a deposit or withdrawal against the identity's account.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	kind, err := ParseKind(req.Kind)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	amount, err := money.Parse(req.Amount.String())
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid_amount")
	}

	res, err := h.service.Apply(c.UserContext(), c.Params("identityID"), kind, amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient_funds")
		case errors.Is(err, ErrUnknownAccount):
			return fiber.NewError(http.StatusNotFound, "account not found")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"identity_id": c.Params("identityID"),
		"balance":     money.Format(res.Balance),
		"transaction": toPayload(res.Transaction),
	})
}

// Balance returns the identity's current balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("identityID"))
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"identity_id": c.Params("identityID"),
		"balance":     money.Format(balance),
		"as_of":       time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// History lists the identity's transactions newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	history, err := h.service.History(c.UserContext(), c.Params("identityID"))
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	payload := make([]transactionPayload, 0, len(history))
	for _, tx := range history {
		payload = append(payload, toPayload(tx))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"identity_id":  c.Params("identityID"),
		"transactions": payload,
		"count":        len(payload),
	})
}
