package enrollment

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/extractor"
)

// Handler exposes enrollment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an enrollment HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type enrollRequest struct {
	ID        string    `json:"id"`
	PIN       string    `json:"pin"`
	Embedding []float64 `json:"embedding"`
	ImageB64  string    `json:"image_b64"`
}

type enrollResponse struct {
	ID        string `json:"id"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// Enroll handles identity onboarding. The caller supplies either a
// pre-extracted embedding or a base64 face image.
func (h *Handler) Enroll(c *fiber.Ctx) error {
	var req enrollRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	var image []byte
	if req.ImageB64 != "" {
		raw := req.ImageB64
		if idx := strings.Index(raw, ","); strings.HasPrefix(raw, "data:") && idx >= 0 {
			raw = raw[idx+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid base64 image")
		}
		image = decoded
	}

	record, err := h.service.Enroll(c.UserContext(), EnrollInput{
		ID:        req.ID,
		PIN:       req.PIN,
		Embedding: req.Embedding,
		Image:     image,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateIdentity):
			return fiber.NewError(http.StatusConflict, "identity already enrolled")
		case errors.Is(err, ErrMalformedPIN),
			errors.Is(err, ErrMissingBiometric),
			errors.Is(err, ErrDimensionMismatch):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, extractor.ErrNoFaceDetected):
			return fiber.NewError(http.StatusUnprocessableEntity, "no_face_detected")
		case errors.Is(err, extractor.ErrTimeout):
			return fiber.NewError(http.StatusGatewayTimeout, "extraction_timeout")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(enrollResponse{
		ID:        record.ID,
		Balance:   "0.00",
		CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
	})
}
