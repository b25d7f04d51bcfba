package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/faceatm/faceatm/internal/gate"
	"github.com/faceatm/faceatm/internal/session"
)

const (
	sessionIDHeader = "X-Session-ID"
	sessionLocalKey = "session"
)

// SessionAuth loads the caller's two-factor session from the store and
// rejects requests that have not completed both factors.
func SessionAuth(store session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Get(sessionIDHeader)
		if sessionID == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing session id")
		}

		sess, err := store.Get(c.UserContext(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "session not found")
			}
			return fiber.NewError(http.StatusInternalServerError, "session lookup failed")
		}
		if sess.Stage != session.StageAuthenticated {
			return fiber.NewError(http.StatusUnauthorized, "authentication incomplete")
		}

		c.Locals(sessionLocalKey, sess)
		return c.Next()
	}
}

// IdentityGate enforces that the authenticated session targets its own
// identity. It must run after SessionAuth on any route carrying an
// :identityID parameter.
func IdentityGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := c.Locals(sessionLocalKey).(session.Session)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing session")
		}
		if err := gate.Authorize(sess, c.Params("identityID")); err != nil {
			return fiber.NewError(http.StatusForbidden, "unauthorized for identity")
		}
		return c.Next()
	}
}
