package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/storage/memory"
)

func TestSweepDowngradesExpired(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired, err := store.CreateUser(ctx, user.User{Email: "expired@example.com", Plan: user.PlanPremium, SubExpiresAt: &past, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}
	active, err := store.CreateUser(ctx, user.User{Email: "active@example.com", Plan: user.PlanPremium, SubExpiresAt: &future, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create active: %v", err)
	}
	free, err := store.CreateUser(ctx, user.User{Email: "free@example.com", Plan: user.PlanFree, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create free: %v", err)
	}

	NewSweeper(store, "", nil).sweep(ctx)

	got, _ := store.GetUser(ctx, expired.ID)
	if got.Plan != user.PlanFree || got.SubExpiresAt != nil {
		t.Fatalf("expired account not downgraded: %+v", got)
	}
	got, _ = store.GetUser(ctx, active.ID)
	if got.Plan != user.PlanPremium {
		t.Fatalf("active subscription must survive the sweep: %+v", got)
	}
	got, _ = store.GetUser(ctx, free.ID)
	if got.Plan != user.PlanFree {
		t.Fatalf("free account changed: %+v", got)
	}
}

func TestStartStop(t *testing.T) {
	s := NewSweeper(memory.New(), "@hourly", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
