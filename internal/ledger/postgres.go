package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists balances and transactions in PostgreSQL. The
// account row is locked FOR UPDATE for the duration of a posting, so
// mutations for one identity are serialized across processes.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees a zero-balance account exists for the identity.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, identityID string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (identity_id, balance) VALUES ($1, 0)
        ON CONFLICT (identity_id) DO NOTHING`, identityID)
	return err
}

// Apply validates and records one deposit or withdrawal. On any validation
// failure the transaction rolls back and no state changes.
func (l *PostgresLedger) Apply(ctx context.Context, identityID string, kind Kind, amount int64) (Result, error) {
	if kind != KindDeposit && kind != KindWithdraw {
		return Result{}, ErrUnknownKind
	}
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE identity_id = $1 FOR UPDATE`, identityID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrUnknownAccount
		}
		return Result{}, err
	}

	if kind == KindWithdraw && amount > balance {
		return Result{}, ErrInsufficientFunds
	}

	record := Transaction{
		ID:     uuid.NewString(),
		Kind:   kind,
		Amount: amount,
	}

	if err := tx.QueryRow(ctx, `INSERT INTO transactions (id, identity_id, kind, amount, created_at)
        VALUES ($1, $2, $3, $4, now()) RETURNING created_at`,
		record.ID, identityID, string(kind), amount).Scan(&record.CreatedAt); err != nil {
		return Result{}, err
	}
	record.CreatedAt = record.CreatedAt.UTC()

	if kind == KindDeposit {
		balance += amount
	} else {
		balance -= amount
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE identity_id = $2`, balance, identityID); err != nil {
		return Result{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, err
	}

	return Result{Transaction: record, Balance: balance}, nil
}

// Balance returns the stored balance for the identity.
func (l *PostgresLedger) Balance(ctx context.Context, identityID string) (int64, error) {
	var balance int64
	if err := l.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE identity_id = $1`, identityID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownAccount
		}
		return 0, err
	}
	return balance, nil
}

// History returns the identity's transactions newest first.
func (l *PostgresLedger) History(ctx context.Context, identityID string) ([]Transaction, error) {
	if _, err := l.Balance(ctx, identityID); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(ctx, `SELECT id, kind, amount, created_at FROM transactions
        WHERE identity_id = $1 ORDER BY created_at DESC, id DESC`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Transaction
	for rows.Next() {
		var (
			tx   Transaction
			id   uuid.UUID
			kind string
		)
		if err := rows.Scan(&id, &kind, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.ID = id.String()
		tx.Kind = Kind(kind)
		tx.CreatedAt = tx.CreatedAt.UTC()
		history = append(history, tx)
	}
	return history, rows.Err()
}
