// Package gate binds an authenticated session to the single identity it
// may operate on. Every ledger mutation and history read passes through
// Authorize; it is the only thing stopping one session from touching
// another identity's account.
package gate

import (
	"errors"

	"github.com/faceatm/faceatm/internal/session"
)

// ErrUnauthorized means the session is not fully authenticated for the
// target identity. Callers must surface it and abort the operation.
var ErrUnauthorized = errors.New("session not authorized for identity")

// Authorize succeeds only when the session completed both factors and the
// target identity is the one that authenticated.
func Authorize(sess session.Session, targetIdentityID string) error {
	if sess.Stage != session.StageAuthenticated {
		return ErrUnauthorized
	}
	if targetIdentityID == "" || sess.IdentityID != targetIdentityID {
		return ErrUnauthorized
	}
	return nil
}
