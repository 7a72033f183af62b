package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	SessionKey  string
	CSRFKey     string

	// TiersFile points at the YAML tier table. Empty means the built-in
	// default table.
	TiersFile    string
	RedisURL     string
	TierCacheTTL time.Duration

	LogLevel  string
	LogFormat string

	LoginMaxAttempts int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SessionKey:  getEnv("SESSION_KEY", ""),
		CSRFKey:     getEnv("CSRF_KEY", ""),
		TiersFile:   getEnv("TIERS_FILE", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SessionKey == "" {
		return nil, fmt.Errorf("SESSION_KEY is required")
	}

	if cfg.CSRFKey == "" {
		return nil, fmt.Errorf("CSRF_KEY is required")
	}

	ttl, err := time.ParseDuration(getEnv("TIER_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("TIER_CACHE_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("TIER_CACHE_TTL must be positive")
	}
	cfg.TierCacheTTL = ttl

	attempts, err := strconv.Atoi(getEnv("LOGIN_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("LOGIN_MAX_ATTEMPTS: %w", err)
	}
	if attempts < 1 {
		return nil, fmt.Errorf("LOGIN_MAX_ATTEMPTS must be at least 1")
	}
	cfg.LoginMaxAttempts = attempts

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
