package web

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/subscriptions"
)

func TestToSubscriptionJSON_EffectiveTier(t *testing.T) {
	s := &Server{policy: access.MustPolicy(access.DefaultSchema())}
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	cases := []struct {
		name string
		sub  subscriptions.Subscription
		want access.Tier
	}{
		{"active", subscriptions.Subscription{Tier: access.TierInitiate, Status: subscriptions.StatusActive}, access.TierInitiate},
		{"canceled", subscriptions.Subscription{Tier: access.TierElite, Status: subscriptions.StatusCanceled}, access.TierFree},
		{"period ended", subscriptions.Subscription{Tier: access.TierElite, Status: subscriptions.StatusActive, CurrentPeriodEnd: &past}, access.TierFree},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.sub.UserID = uuid.New()
			out, err := s.toSubscriptionJSON(&tc.sub, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.EffectiveTier != tc.want || out.Tier != tc.sub.Tier {
				t.Errorf("tier=%q effective=%q, want effective %q", out.Tier, out.EffectiveTier, tc.want)
			}
		})
	}
}

func TestToSubscriptionJSON_UnknownStoredTier(t *testing.T) {
	s := &Server{policy: access.MustPolicy(access.DefaultSchema())}
	sub := &subscriptions.Subscription{
		UserID: uuid.New(),
		Tier:   "platinum",
		Status: subscriptions.StatusActive,
	}

	_, err := s.toSubscriptionJSON(sub, time.Now())
	var invalid *access.InvalidTierError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *access.InvalidTierError, got %v", err)
	}
	if invalid.Tier != "platinum" {
		t.Errorf("tier = %q", invalid.Tier)
	}
}
