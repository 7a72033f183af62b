package subscriptions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/subscriptions"
	"github.com/acgh213/promptvault/internal/testutil"
)

func TestRepository_UpsertAndFind(t *testing.T) {
	pool := testutil.SetupDB(t)
	ctx := context.Background()
	repo := subscriptions.NewRepository(pool)
	uid := testutil.CreateUser(t, pool, "sub@test.com", "Subscriber", "password123", "member")

	if _, err := repo.FindByUserID(ctx, uid); !errors.Is(err, subscriptions.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	first, err := repo.Upsert(ctx, &subscriptions.Subscription{
		UserID:             uid,
		Tier:               access.TierArchitect,
		Status:             subscriptions.StatusActive,
		CurrentPeriodEnd:   &end,
		ProviderCustomerID: "cus_123",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second, err := repo.Upsert(ctx, &subscriptions.Subscription{
		UserID: uid,
		Tier:   access.TierElite,
		Status: subscriptions.StatusTrialing,
	})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert should keep the row id: %s vs %s", second.ID, first.ID)
	}

	got, err := repo.FindByUserID(ctx, uid)
	if err != nil {
		t.Fatalf("FindByUserID: %v", err)
	}
	if got.Tier != access.TierElite || got.Status != subscriptions.StatusTrialing {
		t.Errorf("unexpected subscription: %+v", got)
	}
	if got.CurrentPeriodEnd != nil {
		t.Errorf("period end should be cleared, got %v", got.CurrentPeriodEnd)
	}
}

func TestResolver_WithRepository(t *testing.T) {
	pool := testutil.SetupDB(t)
	ctx := context.Background()
	policy := access.MustPolicy(access.DefaultSchema())
	resolver := subscriptions.NewResolver(subscriptions.NewRepository(pool), policy)

	uid := testutil.CreateUser(t, pool, "resolve@test.com", "Resolver", "password123", "member")
	tier, err := resolver.TierFor(ctx, uid)
	if err != nil || tier != access.TierFree {
		t.Fatalf("no subscription: got %q, %v", tier, err)
	}

	testutil.SetSubscription(t, pool, uid, "initiate", "active")
	tier, err = resolver.TierFor(ctx, uid)
	if err != nil || tier != access.TierInitiate {
		t.Fatalf("active subscription: got %q, %v", tier, err)
	}

	if _, err := resolver.TierFor(ctx, uuid.New()); err != nil {
		t.Fatalf("unknown user should resolve to lowest tier, got %v", err)
	}
}
