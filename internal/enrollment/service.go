package enrollment

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/faceatm/faceatm/internal/extractor"
	"github.com/faceatm/faceatm/internal/ledger"
)

var (
	// ErrMalformedPIN rejects PINs that are not exactly four digits.
	ErrMalformedPIN = errors.New("PIN must be exactly 4 digits")

	// ErrInvalidPIN indicates the submitted PIN does not match the stored one.
	ErrInvalidPIN = errors.New("invalid PIN")

	// ErrMissingBiometric occurs when neither an embedding nor an image is supplied.
	ErrMissingBiometric = errors.New("an embedding or a face image is required")

	// ErrDimensionMismatch rejects embeddings whose length differs from the
	// configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Service manages identity enrollment and PIN verification.
type Service struct {
	repo      Repository
	extractor extractor.Extractor
	ledger    ledger.Ledger
	dim       int
}

// NewService creates an enrollment service. dim is the embedding
// dimensionality every record must satisfy.
func NewService(repo Repository, ext extractor.Extractor, led ledger.Ledger, dim int) *Service {
	return &Service{repo: repo, extractor: ext, ledger: led, dim: dim}
}

// EnrollInput captures the data required to enroll an identity. Exactly one
// of Embedding or Image must be provided; when Image is set the embedding
// is produced by the extractor.
type EnrollInput struct {
	ID        string
	PIN       string
	Embedding []float64
	Image     []byte
}

// Enroll creates an identity record with a zero-balance ledger account and
// an empty history. A duplicate id fails with ErrDuplicateIdentity and
// leaves the existing record untouched.
func (s *Service) Enroll(ctx context.Context, input EnrollInput) (Record, error) {
	if !pinPattern.MatchString(input.PIN) {
		return Record{}, ErrMalformedPIN
	}

	embedding := input.Embedding
	if len(embedding) == 0 {
		if len(input.Image) == 0 {
			return Record{}, ErrMissingBiometric
		}
		vec, err := s.extractor.Extract(ctx, input.Image)
		if err != nil {
			return Record{}, err
		}
		embedding = vec
	}
	if len(embedding) != s.dim {
		return Record{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dim)
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.PIN), bcrypt.DefaultCost)
	if err != nil {
		return Record{}, err
	}

	record := Record{
		ID:        id,
		PINHash:   hash,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return Record{}, err
	}
	if err := s.ledger.EnsureAccount(ctx, id); err != nil {
		return Record{}, err
	}

	return record, nil
}

// VerifyPIN checks the submitted PIN against the identity's stored hash.
func (s *Service) VerifyPIN(ctx context.Context, id, pin string) error {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(record.PINHash, []byte(pin)); err != nil {
		return ErrInvalidPIN
	}
	return nil
}

// Get fetches an identity record.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.repo.Get(ctx, id)
}
