package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidAmount occurs when a posting amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds occurs when a withdrawal exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAccount indicates no ledger account exists for the identity.
	ErrUnknownAccount = errors.New("account not found")

	// ErrUnknownKind rejects transaction kinds outside the closed set.
	ErrUnknownKind = errors.New("unknown transaction kind")
)

// Kind is the closed set of transaction kinds. Adding a kind requires an
// explicit code change; Apply rejects anything outside the set.
type Kind string

const (
	// KindDeposit credits the account balance.
	KindDeposit Kind = "deposit"
	// KindWithdraw debits the account balance.
	KindWithdraw Kind = "withdraw"
)

// ParseKind converts external input into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDeposit:
		return KindDeposit, nil
	case KindWithdraw:
		return KindWithdraw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Transaction is one applied balance mutation. Amounts are minor units.
type Transaction struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Result captures the outcome of a successful posting.
type Result struct {
	Transaction Transaction
	Balance     int64
}

// Ledger defines the contract implemented by ledger backends.
// History returns transactions newest first; the stored record is
// chronological and append-only, so replaying it from zero reproduces
// the current balance.
type Ledger interface {
	EnsureAccount(ctx context.Context, identityID string) error
	Apply(ctx context.Context, identityID string, kind Kind, amount int64) (Result, error)
	Balance(ctx context.Context, identityID string) (int64, error)
	History(ctx context.Context, identityID string) ([]Transaction, error)
}
