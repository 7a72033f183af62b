package subscriptions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/acgh213/promptvault/internal/access"
)

// Finder loads a user's subscription. *Repository implements it.
type Finder interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)
}

// TierTable is the part of *access.Policy the resolver needs.
type TierTable interface {
	Lowest() access.Tier
	Valid(t access.Tier) bool
}

// TierResolver maps a user to the tier their subscription grants.
type TierResolver interface {
	TierFor(ctx context.Context, userID uuid.UUID) (access.Tier, error)
}

type Resolver struct {
	subs  Finder
	tiers TierTable
	now   func() time.Time
}

func NewResolver(subs Finder, tiers TierTable) *Resolver {
	return &Resolver{subs: subs, tiers: tiers, now: time.Now}
}

// TierFor returns the subscribed tier while the subscription entitles the
// user, and the lowest tier otherwise. A stored tier missing from the table
// is an *access.InvalidTierError, never a silent downgrade.
func (r *Resolver) TierFor(ctx context.Context, userID uuid.UUID) (access.Tier, error) {
	sub, err := r.subs.FindByUserID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return r.tiers.Lowest(), nil
	}
	if err != nil {
		return "", err
	}
	if !r.tiers.Valid(sub.Tier) {
		return "", &access.InvalidTierError{Tier: sub.Tier}
	}
	if !sub.Entitles(r.now()) {
		return r.tiers.Lowest(), nil
	}
	return sub.Tier, nil
}

// CachedResolver memoises another resolver. Cache failures degrade to a
// direct lookup.
type CachedResolver struct {
	inner TierResolver
	cache Cache
	tiers TierTable
	ttl   time.Duration
}

func NewCachedResolver(inner TierResolver, cache Cache, tiers TierTable, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, cache: cache, tiers: tiers, ttl: ttl}
}

func (c *CachedResolver) TierFor(ctx context.Context, userID uuid.UUID) (access.Tier, error) {
	tier, ok, err := c.cache.Get(ctx, userID)
	if err != nil {
		slog.Warn("tier cache read failed", "error", err, "user_id", userID)
	}
	// Entries written under an older tier table are treated as misses.
	if ok && c.tiers.Valid(tier) {
		return tier, nil
	}

	tier, err = c.inner.TierFor(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := c.cache.Set(ctx, userID, tier, c.ttl); err != nil {
		slog.Warn("tier cache write failed", "error", err, "user_id", userID)
	}
	return tier, nil
}

// Invalidate drops a user's cached tier after their subscription changes.
func (c *CachedResolver) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.cache.Delete(ctx, userID)
}
