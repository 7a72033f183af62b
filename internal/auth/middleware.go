package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const SessionCookieName = "promptvault_session"

type Middleware struct {
	db       *pgxpool.Pool
	sessions *SessionManager
}

func NewMiddleware(db *pgxpool.Pool, sessions *SessionManager) *Middleware {
	return &Middleware{
		db:       db,
		sessions: sessions,
	}
}

func (m *Middleware) loadUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	var user User
	err := m.db.QueryRow(ctx, `
		SELECT id, email, name, role FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.Name, &user.Role)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RequireAuth rejects requests without a valid session with 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}

		session, err := m.sessions.Validate(r.Context(), cookie.Value)
		if err != nil {
			slog.Debug("invalid session", "error", err)
			ClearSessionCookie(w)
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "session expired")
			return
		}

		user, err := m.loadUser(r.Context(), session.UserID)
		if err != nil {
			slog.Error("failed to load user", "error", err, "user_id", session.UserID)
			writeAuthError(w, http.StatusInternalServerError, "internal_error", "failed to load user")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// LoadSession attaches the user when a valid session cookie is present and
// otherwise lets the request through anonymously.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.sessions.Validate(r.Context(), cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.loadUser(r.Context(), session.UserID)
		if err != nil {
			slog.Warn("session without loadable user", "error", err, "user_id", session.UserID)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireRole must run after RequireAuth.
func (m *Middleware) RequireRole(minRole string) func(http.Handler) http.Handler {
	return RequireRole(minRole)
}

func RequireRole(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())

			allowed := false
			switch minRole {
			case RoleAdmin:
				allowed = user.IsAdmin()
			case RoleEditor:
				allowed = user.IsEditor()
			case RoleMember:
				allowed = user.IsMember()
			}

			if !allowed {
				writeAuthError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
