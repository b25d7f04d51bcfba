package ledger

import (
	"context"
	"testing"

	"github.com/faceatm/faceatm/internal/notification"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func TestServiceNotifiesOnDeposit(t *testing.T) {
	backend := NewInMemory()
	ctx := context.Background()
	if err := backend.EnsureAccount(ctx, "alice"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	notifier := &testNotifier{}
	svc := NewService(backend, notifier)

	res, err := svc.Apply(ctx, "alice", KindDeposit, 5000)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Balance != 5000 {
		t.Fatalf("expected balance 5000, got %d", res.Balance)
	}
	if notifier.last.Kind != notification.KindDeposit {
		t.Fatalf("expected deposit notification, got %q", notifier.last.Kind)
	}
	if notifier.last.IdentityID != "alice" {
		t.Fatalf("notification targeted %q", notifier.last.IdentityID)
	}
}

func TestServiceSkipsNotificationOnFailure(t *testing.T) {
	backend := NewInMemory()
	ctx := context.Background()
	if err := backend.EnsureAccount(ctx, "alice"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	notifier := &testNotifier{}
	svc := NewService(backend, notifier)

	if _, err := svc.Apply(ctx, "alice", KindWithdraw, 100); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if notifier.last.Kind != "" {
		t.Fatalf("notification sent for failed apply: %+v", notifier.last)
	}
}
