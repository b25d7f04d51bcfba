package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// account serializes all mutations for one identity behind its own mutex,
// so concurrent Apply calls against the same identity never interleave.
type account struct {
	mu      sync.Mutex
	balance int64
	history []Transaction // chronological, append-only
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// NewInMemory creates a concurrency-safe in-memory ledger. It backs the
// development mode and the unit tests.
func NewInMemory() Ledger {
	return &inMemoryLedger{accounts: make(map[string]*account)}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, identityID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[identityID]; !exists {
		l.accounts[identityID] = &account{}
	}
	return nil
}

func (l *inMemoryLedger) lookup(identityID string) (*account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[identityID]
	if !ok {
		return nil, ErrUnknownAccount
	}
	return acc, nil
}

func (l *inMemoryLedger) Apply(_ context.Context, identityID string, kind Kind, amount int64) (Result, error) {
	if kind != KindDeposit && kind != KindWithdraw {
		return Result{}, ErrUnknownKind
	}
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}

	acc, err := l.lookup(identityID)
	if err != nil {
		return Result{}, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if kind == KindWithdraw && amount > acc.balance {
		return Result{}, ErrInsufficientFunds
	}

	tx := Transaction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if kind == KindDeposit {
		acc.balance += amount
	} else {
		acc.balance -= amount
	}
	acc.history = append(acc.history, tx)

	return Result{Transaction: tx, Balance: acc.balance}, nil
}

func (l *inMemoryLedger) Balance(_ context.Context, identityID string) (int64, error) {
	acc, err := l.lookup(identityID)
	if err != nil {
		return 0, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, nil
}

func (l *inMemoryLedger) History(_ context.Context, identityID string) ([]Transaction, error) {
	acc, err := l.lookup(identityID)
	if err != nil {
		return nil, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()

	// Newest first for display; the stored slice stays chronological.
	out := make([]Transaction, len(acc.history))
	for i, tx := range acc.history {
		out[len(acc.history)-1-i] = tx
	}
	return out, nil
}
