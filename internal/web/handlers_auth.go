package web

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/audit"
	"github.com/acgh213/promptvault/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userJSON struct {
	ID    uuid.UUID   `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  string      `json:"role"`
	Tier  access.Tier `json:"tier"`
}

// viewerTier is the tier content is gated against for this request. Staff
// always read at the top tier and anonymous readers at the bottom.
func (s *Server) viewerTier(ctx context.Context) (access.Tier, error) {
	user := auth.UserFromContext(ctx)
	switch {
	case user == nil:
		return s.policy.Lowest(), nil
	case user.IsEditor():
		return s.policy.Highest(), nil
	}
	return s.tiers.TierFor(ctx, user.ID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r)

	if allowed, retryAfter := s.loginLimiter.Allow(ip); !allowed {
		_ = s.audit.Log(ctx, audit.Entry{
			Action:     audit.ActionLoginLimited,
			TargetType: audit.TargetUser,
			IP:         ip,
			UserAgent:  r.UserAgent(),
		})
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	var userID uuid.UUID
	var passwordHash string
	err := s.db.QueryRow(ctx, `
		SELECT id, password_hash FROM users WHERE lower(email) = $1
	`, req.Email).Scan(&userID, &passwordHash)

	if errors.Is(err, pgx.ErrNoRows) {
		s.logFailedLogin(r, nil, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	if err := auth.CheckPassword(passwordHash, req.Password); err != nil {
		s.logFailedLogin(r, &userID, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}

	token, err := s.sessions.Create(ctx, userID, ip, r.UserAgent())
	if err != nil {
		slog.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}
	s.loginLimiter.Reset(ip)

	_ = s.audit.Log(ctx, audit.Entry{
		ActorUserID: &userID,
		Action:      audit.ActionLoginSuccess,
		TargetType:  audit.TargetUser,
		TargetID:    &userID,
		IP:          ip,
		UserAgent:   r.UserAgent(),
		Metadata:    map[string]any{"email": req.Email},
	})

	auth.SetSessionCookie(w, token, !s.cfg.IsDevelopment())

	user, err := s.loadUserJSON(ctx, userID)
	if err != nil {
		writeFailure(w, r, err, "load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) logFailedLogin(r *http.Request, userID *uuid.UUID, email string) {
	_ = s.audit.Log(r.Context(), audit.Entry{
		ActorUserID: userID,
		Action:      audit.ActionLoginFailed,
		TargetType:  audit.TargetUser,
		TargetID:    userID,
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata:    map[string]any{"email": email},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil {
		if session, verr := s.sessions.Validate(ctx, cookie.Value); verr == nil {
			_ = s.audit.Log(ctx, audit.Entry{
				ActorUserID: &session.UserID,
				Action:      audit.ActionLogout,
				TargetType:  audit.TargetUser,
				TargetID:    &session.UserID,
				IP:          clientIP(r),
				UserAgent:   r.UserAgent(),
			})
		}
		_ = s.sessions.Delete(ctx, cookie.Value)
	}

	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	tier, err := s.viewerTier(r.Context())
	if err != nil {
		writeFailure(w, r, err, "resolve tier")
		return
	}
	writeJSON(w, http.StatusOK, userJSON{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		Tier:  tier,
	})
}

// loadUserJSON reads the user row and resolves their tier as if they had
// made the request themselves.
func (s *Server) loadUserJSON(ctx context.Context, userID uuid.UUID) (userJSON, error) {
	var u auth.User
	err := s.db.QueryRow(ctx, `SELECT id, email, name, role FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role)
	if err != nil {
		return userJSON{}, err
	}
	tier, err := s.viewerTier(auth.ContextWithUser(ctx, &u))
	if err != nil {
		return userJSON{}, err
	}
	return userJSON{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Tier: tier}, nil
}
