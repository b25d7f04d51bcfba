package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateIdentity occurs when an id is enrolled a second time.
	ErrDuplicateIdentity = errors.New("identity already enrolled")

	// ErrNotFound indicates no record exists for the identity.
	ErrNotFound = errors.New("identity not found")
)

// Repository persists identity records. Create is atomic with respect to
// the duplicate-id check.
type Repository interface {
	Create(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, error)
	Embeddings(ctx context.Context) ([]Enrolled, error)
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed enrollment repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity record, failing on duplicate ids.
func (r *PostgresRepository) Create(ctx context.Context, record Record) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO identities (id, pin_hash, embedding, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		record.ID, record.PINHash, record.Embedding, record.CreatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateIdentity
	}
	return nil
}

// Get fetches an identity record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT id, pin_hash, embedding, created_at FROM identities WHERE id = $1`, id)
	var (
		record    Record
		createdAt time.Time
	)
	if err := row.Scan(&record.ID, &record.PINHash, &record.Embedding, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	record.CreatedAt = createdAt.UTC()
	return record, nil
}

// Embeddings enumerates enrolled embeddings in enrollment order, which
// keeps the matcher's tie-break deterministic.
func (r *PostgresRepository) Embeddings(ctx context.Context) ([]Enrolled, error) {
	rows, err := r.db.Query(ctx, `SELECT id, embedding FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrolled []Enrolled
	for rows.Next() {
		var e Enrolled
		if err := rows.Scan(&e.ID, &e.Embedding); err != nil {
			return nil, err
		}
		enrolled = append(enrolled, e)
	}
	return enrolled, rows.Err()
}

// Delete removes an identity record.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
