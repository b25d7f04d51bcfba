package session

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/enrollment"
	"github.com/faceatm/faceatm/internal/extractor"
	"github.com/faceatm/faceatm/internal/facematch"
)

// Handler exposes the two-factor session endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a session HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	Stage      Stage  `json:"stage"`
	IdentityID string `json:"identity_id,omitempty"`
}

func toResponse(sess Session) sessionResponse {
	return sessionResponse{SessionID: sess.ID, Stage: sess.Stage, IdentityID: sess.IdentityID}
}

// Begin opens a new session awaiting face capture.
func (h *Handler) Begin(c *fiber.Ctx) error {
	sess, err := h.service.Begin(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(sess))
}

type faceRequest struct {
	ImageB64  string    `json:"image_b64"`
	Embedding []float64 `json:"embedding"`
}

// SubmitFace runs the face factor for the session.
func (h *Handler) SubmitFace(c *fiber.Ctx) error {
	var req faceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	sample := FaceSample{Embedding: req.Embedding}
	if req.ImageB64 != "" {
		raw := req.ImageB64
		if idx := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && idx >= 0 {
			raw = raw[idx+1:]
		}
		image, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid base64 image")
		}
		sample.Image = image
	}
	if len(sample.Embedding) == 0 && len(sample.Image) == 0 {
		return fiber.NewError(http.StatusBadRequest, "an embedding or a face image is required")
	}

	sess, err := h.service.SubmitFace(c.UserContext(), c.Params("sessionID"), sample)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return fiber.NewError(http.StatusNotFound, "session not found")
		case errors.Is(err, ErrInvalidStage):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, facematch.ErrNoMatch):
			return fiber.NewError(http.StatusUnauthorized, "no_match")
		case errors.Is(err, extractor.ErrNoFaceDetected):
			return fiber.NewError(http.StatusUnprocessableEntity, "no_face_detected")
		case errors.Is(err, extractor.ErrTimeout):
			return fiber.NewError(http.StatusGatewayTimeout, "extraction_timeout")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(toResponse(sess))
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// SubmitPin runs the PIN factor for the session.
func (h *Handler) SubmitPin(c *fiber.Ctx) error {
	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.service.SubmitPin(c.UserContext(), c.Params("sessionID"), req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return fiber.NewError(http.StatusNotFound, "session not found")
		case errors.Is(err, ErrInvalidStage):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, enrollment.ErrInvalidPIN):
			return fiber.NewError(http.StatusUnauthorized, "invalid_pin")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(toResponse(sess))
}

// Restart discards the tentative match and returns to face capture.
func (h *Handler) Restart(c *fiber.Ctx) error {
	sess, err := h.service.Restart(c.UserContext(), c.Params("sessionID"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return fiber.NewError(http.StatusNotFound, "session not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(sess))
}

// End terminates the session.
func (h *Handler) End(c *fiber.Ctx) error {
	if err := h.service.End(c.UserContext(), c.Params("sessionID")); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ended"})
}
