package session

import (
	"context"
	"errors"
	"testing"

	"github.com/faceatm/faceatm/internal/enrollment"
	"github.com/faceatm/faceatm/internal/extractor"
	"github.com/faceatm/faceatm/internal/facematch"
	"github.com/faceatm/faceatm/internal/ledger"
)

var (
	embAlice = []float64{0, 0, 0}
	embBob   = []float64{0.9, 0, 0} // 0.9 from alice, beyond the 0.6 threshold
)

type fixture struct {
	svc    *Service
	enroll *enrollment.Service
}

func newFixture(t *testing.T, ext extractor.Extractor) fixture {
	t.Helper()
	repo := enrollment.NewMemoryRepository()
	led := ledger.NewInMemory()
	if ext == nil {
		ext = extractor.NewStaticExtractor(map[string][]float64{
			"alice-capture": embAlice,
			"bob-capture":   embBob,
		})
	}
	enrollSvc := enrollment.NewService(repo, ext, led, 3)
	ctx := context.Background()
	if _, err := enrollSvc.Enroll(ctx, enrollment.EnrollInput{ID: "alice", PIN: "1234", Embedding: embAlice}); err != nil {
		t.Fatalf("enroll alice: %v", err)
	}
	if _, err := enrollSvc.Enroll(ctx, enrollment.EnrollInput{ID: "bob", PIN: "9876", Embedding: embBob}); err != nil {
		t.Fatalf("enroll bob: %v", err)
	}

	matcher := facematch.New(repo, 0.6)
	svc := NewService(NewMemoryStore(), ext, matcher, enrollSvc, 3)
	return fixture{svc: svc, enroll: enrollSvc}
}

func TestFullTwoFactorFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, err := f.svc.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if sess.Stage != StageAwaitingFace {
		t.Fatalf("expected awaiting_face, got %s", sess.Stage)
	}

	sess, err = f.svc.SubmitFace(ctx, sess.ID, FaceSample{Image: []byte("alice-capture")})
	if err != nil {
		t.Fatalf("submit face: %v", err)
	}
	if sess.Stage != StageAwaitingPin || sess.IdentityID != "alice" {
		t.Fatalf("unexpected session after face: %+v", sess)
	}

	sess, err = f.svc.SubmitPin(ctx, sess.ID, "1234")
	if err != nil {
		t.Fatalf("submit pin: %v", err)
	}
	if sess.Stage != StageAuthenticated || sess.IdentityID != "alice" {
		t.Fatalf("unexpected session after pin: %+v", sess)
	}
}

func TestSubmitFaceWithEmbedding(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Embedding: embBob})
	if err != nil {
		t.Fatalf("submit face: %v", err)
	}
	if sess.IdentityID != "bob" {
		t.Fatalf("expected bob, got %s", sess.IdentityID)
	}
}

func TestCrossIdentityEmbeddingsNeverMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Embedding: embAlice})
	if err != nil {
		t.Fatalf("submit face: %v", err)
	}
	if sess.IdentityID == "bob" {
		t.Fatalf("alice's embedding matched bob")
	}
}

func TestWrongPinStaysAwaitingPin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Embedding: embAlice})
	if err != nil {
		t.Fatalf("submit face: %v", err)
	}

	sess, err = f.svc.SubmitPin(ctx, sess.ID, "0000")
	if !errors.Is(err, enrollment.ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if sess.Stage != StageAwaitingPin {
		t.Fatalf("wrong PIN changed stage to %s", sess.Stage)
	}

	// Retry with the right PIN still works.
	sess, err = f.svc.SubmitPin(ctx, sess.ID, "1234")
	if err != nil {
		t.Fatalf("retry pin: %v", err)
	}
	if sess.Stage != StageAuthenticated {
		t.Fatalf("expected authenticated, got %s", sess.Stage)
	}
}

func TestOtherIdentityPinNeverAuthenticates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Face matched bob; alice's PIN must not complete the flow.
	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Embedding: embBob})
	if err != nil {
		t.Fatalf("submit face: %v", err)
	}

	sess, err = f.svc.SubmitPin(ctx, sess.ID, "1234")
	if !errors.Is(err, enrollment.ErrInvalidPIN) {
		t.Fatalf("expected ErrInvalidPIN, got %v", err)
	}
	if sess.Stage == StageAuthenticated {
		t.Fatalf("cross-identity PIN authenticated the session")
	}
}

func TestSubmitPinBeforeFace(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	if _, err := f.svc.SubmitPin(ctx, sess.ID, "1234"); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}

func TestSubmitFaceNoMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Embedding: []float64{10, 10, 10}})
	if !errors.Is(err, facematch.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if sess.Stage != StageAwaitingFace {
		t.Fatalf("failed match advanced stage to %s", sess.Stage)
	}
}

func TestSubmitFaceNoFaceDetected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	_, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Image: []byte("blank wall")})
	if !errors.Is(err, extractor.ErrNoFaceDetected) {
		t.Fatalf("expected ErrNoFaceDetected, got %v", err)
	}
	if errors.Is(err, facematch.ErrNoMatch) {
		t.Fatalf("NoFaceDetected conflated with NoMatch")
	}
}

func TestRestartDiscardsTentativeMatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Embedding: embAlice})
	if err != nil {
		t.Fatalf("submit face: %v", err)
	}

	sess, err = f.svc.Restart(ctx, sess.ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if sess.Stage != StageAwaitingFace || sess.IdentityID != "" {
		t.Fatalf("restart did not reset session: %+v", sess)
	}

	if _, err := f.svc.SubmitPin(ctx, sess.ID, "1234"); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("PIN accepted after restart: %v", err)
	}
}

type timeoutExtractor struct {
	calls int
}

func (e *timeoutExtractor) Extract(_ context.Context, _ []byte) ([]float64, error) {
	e.calls++
	return nil, extractor.ErrTimeout
}

func TestSubmitFaceTimeoutExhaustsRetryBudget(t *testing.T) {
	ext := &timeoutExtractor{}
	f := newFixture(t, ext)
	ctx := context.Background()
	ext.calls = 0 // ignore calls made during fixture enrollment

	sess, _ := f.svc.Begin(ctx)
	sess, err := f.svc.SubmitFace(ctx, sess.ID, FaceSample{Image: []byte("capture")})
	if !errors.Is(err, extractor.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if ext.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", ext.calls)
	}
	if sess.Stage != StageAwaitingFace {
		t.Fatalf("timeout left session in stage %s", sess.Stage)
	}
}

func TestEndDeletesSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sess, _ := f.svc.Begin(ctx)
	if err := f.svc.End(ctx, sess.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := f.svc.Get(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
