package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/auth"
	"github.com/acgh213/promptvault/internal/config"
	"github.com/acgh213/promptvault/internal/db"
	"github.com/acgh213/promptvault/internal/logging"
	"github.com/acgh213/promptvault/internal/subscriptions"
	"github.com/acgh213/promptvault/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := access.LoadPolicy(cfg.TiersFile)
	if err != nil {
		return err
	}
	slog.Info("tier table loaded", "tiers", len(policy.Tiers()), "lowest", policy.Lowest(), "highest", policy.Highest())

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var tierCache subscriptions.Cache
	if cfg.RedisURL != "" {
		rc, err := subscriptions.NewRedisCacheFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		tierCache = rc
		slog.Info("tier cache: redis")
	} else {
		tierCache = subscriptions.NewMemoryCache()
		slog.Info("tier cache: in-process")
	}

	go cleanupSessions(ctx, auth.NewSessionManager(pool))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           web.NewRouter(pool, cfg, policy, tierCache),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanupSessions(ctx context.Context, sessions *auth.SessionManager) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.CleanupExpired(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}
