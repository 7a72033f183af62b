package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acgh213/promptvault/internal/access"
)

var ErrNotFound = errors.New("subscription not found")

type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown subscription status %q", s)
}

type Subscription struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	Tier                   access.Tier
	Status                 Status
	CurrentPeriodEnd       *time.Time
	ProviderCustomerID     string
	ProviderSubscriptionID string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Entitles reports whether the subscription currently grants its tier.
func (s *Subscription) Entitles(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != StatusActive && s.Status != StatusTrialing {
		return false
	}
	return s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert inserts or replaces the user's single subscription row.
func (r *Repository) Upsert(ctx context.Context, s *Subscription) (*Subscription, error) {
	var out Subscription
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (
			user_id, tier, status, current_period_end,
			provider_customer_id, provider_subscription_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			updated_at = NOW()
		RETURNING id, user_id, tier, status, current_period_end,
		          provider_customer_id, provider_subscription_id, created_at, updated_at
	`,
		s.UserID,
		string(s.Tier),
		string(s.Status),
		s.CurrentPeriodEnd,
		s.ProviderCustomerID,
		s.ProviderSubscriptionID,
	).Scan(
		&out.ID, &out.UserID, &out.Tier, &out.Status, &out.CurrentPeriodEnd,
		&out.ProviderCustomerID, &out.ProviderSubscriptionID, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return &out, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, tier, status, current_period_end,
		       provider_customer_id, provider_subscription_id, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`, userID).Scan(
		&s.ID, &s.UserID, &s.Tier, &s.Status, &s.CurrentPeriodEnd,
		&s.ProviderCustomerID, &s.ProviderSubscriptionID, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	return &s, nil
}
