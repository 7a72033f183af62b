package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/audit"
	"github.com/acgh213/promptvault/internal/auth"
	"github.com/acgh213/promptvault/internal/subscriptions"
)

type subscriptionRequest struct {
	Tier                   string     `json:"tier"`
	Status                 string     `json:"status"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end"`
	ProviderCustomerID     string     `json:"provider_customer_id"`
	ProviderSubscriptionID string     `json:"provider_subscription_id"`
}

type subscriptionJSON struct {
	ID                     uuid.UUID            `json:"id"`
	UserID                 uuid.UUID            `json:"user_id"`
	Tier                   access.Tier          `json:"tier"`
	Status                 subscriptions.Status `json:"status"`
	CurrentPeriodEnd       *time.Time           `json:"current_period_end,omitempty"`
	ProviderCustomerID     string               `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string               `json:"provider_subscription_id,omitempty"`
	EffectiveTier          access.Tier          `json:"effective_tier"`
	UpdatedAt              time.Time            `json:"updated_at"`
}

// toSubscriptionJSON reports the stored tier alongside the tier it grants
// right now. A stored tier outside the table is an *access.InvalidTierError.
func (s *Server) toSubscriptionJSON(sub *subscriptions.Subscription, now time.Time) (subscriptionJSON, error) {
	if !s.policy.Valid(sub.Tier) {
		return subscriptionJSON{}, &access.InvalidTierError{Tier: sub.Tier}
	}
	effective := s.policy.Lowest()
	if sub.Entitles(now) {
		effective = sub.Tier
	}
	return subscriptionJSON{
		ID:                     sub.ID,
		UserID:                 sub.UserID,
		Tier:                   sub.Tier,
		Status:                 sub.Status,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		ProviderCustomerID:     sub.ProviderCustomerID,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		EffectiveTier:          effective,
		UpdatedAt:              sub.UpdatedAt,
	}, nil
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "subscription not found")
		return
	}

	sub, err := s.subs.FindByUserID(r.Context(), userID)
	if errors.Is(err, subscriptions.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "subscription not found")
		return
	}
	if err != nil {
		writeFailure(w, r, err, "load subscription")
		return
	}
	out, err := s.toSubscriptionJSON(sub, time.Now())
	if err != nil {
		writeFailure(w, r, err, "load subscription")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := auth.UserFromContext(ctx)

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	var req subscriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	tier, err := s.policy.ParseTier(req.Tier)
	if err != nil {
		fields["tier"] = "unknown tier"
	}
	if req.Status == "" {
		req.Status = string(subscriptions.StatusActive)
	}
	status, err := subscriptions.ParseStatus(req.Status)
	if err != nil {
		fields["status"] = "unknown status"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_failed",
			Message: "invalid input",
			Fields:  fields,
		})
		return
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		writeFailure(w, r, err, "load user")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	sub, err := s.subs.Upsert(ctx, &subscriptions.Subscription{
		UserID:                 userID,
		Tier:                   tier,
		Status:                 status,
		CurrentPeriodEnd:       req.CurrentPeriodEnd,
		ProviderCustomerID:     req.ProviderCustomerID,
		ProviderSubscriptionID: req.ProviderSubscriptionID,
	})
	if err != nil {
		writeFailure(w, r, err, "save subscription")
		return
	}

	if err := s.tiers.Invalidate(ctx, userID); err != nil {
		slog.Warn("failed to invalidate tier cache", "error", err, "user_id", userID)
	}

	_ = s.audit.Log(ctx, audit.Entry{
		ActorUserID: &admin.ID,
		Action:      audit.ActionSubscriptionSet,
		TargetType:  audit.TargetSubscription,
		TargetID:    &sub.ID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata: map[string]any{
			"user_id": userID.String(),
			"tier":    string(sub.Tier),
			"status":  string(sub.Status),
		},
	})

	out, err := s.toSubscriptionJSON(sub, time.Now())
	if err != nil {
		writeFailure(w, r, err, "load subscription")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
