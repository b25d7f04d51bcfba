package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool configures and returns a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Migrate applies the schema required by the enrollment store and ledger.
// Statements are idempotent so the function is safe to run at every boot.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			id         TEXT PRIMARY KEY,
			pin_hash   BYTEA NOT NULL,
			embedding  FLOAT8[] NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			identity_id TEXT PRIMARY KEY,
			balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id          UUID PRIMARY KEY,
			identity_id TEXT NOT NULL REFERENCES accounts (identity_id),
			kind        TEXT NOT NULL,
			amount      BIGINT NOT NULL CHECK (amount > 0),
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_identity_created_idx
			ON transactions (identity_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
