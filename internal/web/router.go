package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/justinas/nosurf"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/audit"
	"github.com/acgh213/promptvault/internal/auth"
	"github.com/acgh213/promptvault/internal/config"
	"github.com/acgh213/promptvault/internal/prompts"
	"github.com/acgh213/promptvault/internal/subscriptions"
)

// CSRFHeader carries the masked nosurf token on every response. Clients echo
// it back on mutating requests.
const CSRFHeader = "X-CSRF-Token"

type Server struct {
	db           *pgxpool.Pool
	cfg          *config.Config
	policy       *access.Policy
	sessions     *auth.SessionManager
	authMw       *auth.Middleware
	audit        *audit.Logger
	prompts      *prompts.Repository
	subs         *subscriptions.Repository
	tiers        *subscriptions.CachedResolver
	markdown     *prompts.Renderer
	loginLimiter *auth.RateLimiter
}

// NewRouter wires the JSON API. tierCache holds resolved subscriber tiers;
// pass a *subscriptions.MemoryCache for single-instance deployments.
func NewRouter(db *pgxpool.Pool, cfg *config.Config, policy *access.Policy, tierCache subscriptions.Cache) http.Handler {
	sessions := auth.NewSessionManager(db)
	subsRepo := subscriptions.NewRepository(db)

	s := &Server{
		db:           db,
		cfg:          cfg,
		policy:       policy,
		sessions:     sessions,
		authMw:       auth.NewMiddleware(db, sessions),
		audit:        audit.NewLogger(db),
		prompts:      prompts.NewRepository(db),
		subs:         subsRepo,
		tiers:        subscriptions.NewCachedResolver(subscriptions.NewResolver(subsRepo, policy), tierCache, policy, cfg.TierCacheTTL),
		markdown:     prompts.NewRenderer(),
		loginLimiter: auth.NewRateLimiter(cfg.LoginMaxAttempts, time.Minute),
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Use(csrfProtect(cfg.IsDevelopment()))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/tiers", s.handleTiers)

		// Readable anonymously; a session raises the viewer's tier.
		r.Group(func(r chi.Router) {
			r.Use(s.authMw.LoadSession)
			r.Get("/prompts", s.handleListPrompts)
			r.Get("/prompts/{id}", s.handleGetPrompt)
			r.Get("/prompts/slug/{slug}", s.handleGetPromptBySlug)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMw.RequireAuth)

			r.Get("/me", s.handleMe)

			r.Group(func(r chi.Router) {
				r.Use(s.authMw.RequireRole(auth.RoleEditor))
				r.Post("/prompts", s.handleCreatePrompt)
				r.Put("/prompts/{id}", s.handleUpdatePrompt)
				r.Delete("/prompts/{id}", s.handleDeletePrompt)
				r.Get("/prompts/{id}/revisions", s.handleListRevisions)
				r.Get("/prompts/{id}/diff", s.handleDiff)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.authMw.RequireRole(auth.RoleAdmin))
				r.Get("/subscriptions/{userID}", s.handleGetSubscription)
				r.Put("/subscriptions/{userID}", s.handleSetSubscription)
			})
		})
	})

	return r
}

// csrfProtect wraps nosurf and publishes the token in CSRFHeader.
func csrfProtect(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		exposed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, nosurf.Token(r))
			next.ServeHTTP(w, r)
		})

		csrf := nosurf.New(exposed)
		csrf.SetBaseCookie(http.Cookie{
			Name:     "csrf_token",
			Path:     "/",
			HttpOnly: true,
			Secure:   !isDev,
			SameSite: http.SameSiteLaxMode,
		})
		// Detect TLS from the actual request (X-Forwarded-Proto or r.TLS)
		csrf.SetIsTLSFunc(func(r *http.Request) bool {
			if r.TLS != nil {
				return true
			}
			return r.Header.Get("X-Forwarded-Proto") == "https"
		})
		csrf.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("CSRF validation failed",
				"method", r.Method,
				"path", r.URL.Path,
				"reason", nosurf.Reason(r),
				"ip", r.RemoteAddr,
			)
			writeError(w, http.StatusForbidden, "csrf_failed", "invalid CSRF token")
		}))
		return csrf
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
