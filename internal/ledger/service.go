package ledger

import (
	"context"
	"fmt"

	"github.com/faceatm/faceatm/internal/money"
	"github.com/faceatm/faceatm/internal/notification"
)

// Service wraps a ledger backend and notifies account owners about
// applied transactions.
type Service struct {
	backend  Ledger
	notifier notification.Notifier
}

// NewService constructs a ledger service.
func NewService(backend Ledger, notifier notification.Notifier) *Service {
	return &Service{backend: backend, notifier: notifier}
}

// Apply validates and posts a transaction against the identity's account.
func (s *Service) Apply(ctx context.Context, identityID string, kind Kind, amount int64) (Result, error) {
	res, err := s.backend.Apply(ctx, identityID, kind, amount)
	if err != nil {
		return Result{}, err
	}

	if s.notifier != nil {
		msgKind := notification.KindDeposit
		if kind == KindWithdraw {
			msgKind = notification.KindWithdrawal
		}
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:       msgKind,
			IdentityID: identityID,
			Body:       fmt.Sprintf("%s of %s processed", kind, money.Format(amount)),
		})
	}

	return res, nil
}

// Balance returns the identity's current balance in minor units.
func (s *Service) Balance(ctx context.Context, identityID string) (int64, error) {
	return s.backend.Balance(ctx, identityID)
}

// History lists the identity's transactions newest first.
func (s *Service) History(ctx context.Context, identityID string) ([]Transaction, error) {
	return s.backend.History(ctx, identityID)
}
