package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/faceatm/faceatm/internal/extractor"
	"github.com/faceatm/faceatm/internal/facematch"
)

// ErrInvalidStage rejects an operation that is not legal in the session's
// current stage, e.g. submitting a PIN before a face matched.
var ErrInvalidStage = errors.New("operation not valid in current session stage")

// PINVerifier checks a submitted PIN for one identity. The enrollment
// service satisfies it.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, id, pin string) error
}

// Service drives the two-factor authentication state machine.
type Service struct {
	store      Store
	extractor  extractor.Extractor
	matcher    *facematch.Matcher
	pins       PINVerifier
	retryLimit int
}

// NewService constructs a session service. retryLimit bounds how many
// times one SubmitFace call retries a timed-out extraction.
func NewService(store Store, ext extractor.Extractor, matcher *facematch.Matcher, pins PINVerifier, retryLimit int) *Service {
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &Service{store: store, extractor: ext, matcher: matcher, pins: pins, retryLimit: retryLimit}
}

// Begin creates a fresh session awaiting face capture.
func (s *Service) Begin(ctx context.Context) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		Stage:     StageAwaitingFace,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get loads a session by id.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.store.Get(ctx, id)
}

// FaceSample is a captured face, either raw image bytes for the extractor
// or a pre-extracted embedding.
type FaceSample struct {
	Image     []byte
	Embedding []float64
}

// SubmitFace runs the first factor: extract an embedding (unless one was
// supplied) and match it against the enrolled set. On success the session
// advances to AwaitingPin with the matched identity; on failure it stays
// in AwaitingFace and the error says why (extractor.ErrNoFaceDetected,
// facematch.ErrNoMatch, or extractor.ErrTimeout once the retry budget is
// spent).
func (s *Service) SubmitFace(ctx context.Context, sessionID string, sample FaceSample) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Stage != StageAwaitingFace {
		return sess, ErrInvalidStage
	}

	live := sample.Embedding
	if len(live) == 0 {
		live, err = s.extract(ctx, sample.Image)
		if err != nil {
			return sess, err
		}
	}

	identityID, err := s.matcher.Match(ctx, live)
	if err != nil {
		return sess, err
	}

	sess.IdentityID = identityID
	sess.Stage = StageAwaitingPin
	if err := s.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *Service) extract(ctx context.Context, image []byte) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt < s.retryLimit; attempt++ {
		vec, err := s.extractor.Extract(ctx, image)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !errors.Is(err, extractor.ErrTimeout) {
			return nil, err
		}
	}
	return nil, lastErr
}

// SubmitPin runs the second factor. Only the PIN of the identity produced
// by the face match can complete the flow; a wrong PIN leaves the session
// in AwaitingPin.
func (s *Service) SubmitPin(ctx context.Context, sessionID, pin string) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Stage != StageAwaitingPin {
		return sess, ErrInvalidStage
	}

	if err := s.pins.VerifyPIN(ctx, sess.IdentityID, pin); err != nil {
		return sess, err
	}

	sess.Stage = StageAuthenticated
	if err := s.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Restart discards the tentative match and returns to face capture.
func (s *Service) Restart(ctx context.Context, sessionID string) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	sess.IdentityID = ""
	sess.Stage = StageAwaitingFace
	if err := s.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// End deletes the session.
func (s *Service) End(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}
