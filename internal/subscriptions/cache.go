package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/acgh213/promptvault/internal/access"
)

// Cache stores resolved tiers per user.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (access.Tier, bool, error)
	Set(ctx context.Context, userID uuid.UUID, tier access.Tier, ttl time.Duration) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

const redisKeyPrefix = "promptvault:tier:"

// RedisCache shares resolved tiers across server instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisCacheFromURL parses a redis:// URL and verifies the server answers.
func NewRedisCacheFromURL(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func redisKey(userID uuid.UUID) string {
	return redisKeyPrefix + userID.String()
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (access.Tier, bool, error) {
	val, err := c.client.Get(ctx, redisKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return access.Tier(val), true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, tier access.Tier, ttl time.Duration) error {
	return c.client.Set(ctx, redisKey(userID), string(tier), ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, redisKey(userID)).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	tier      access.Tier
	expiresAt time.Time
}

// MemoryCache is a per-process Cache for single-instance deployments and
// tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[uuid.UUID]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, userID uuid.UUID) (access.Tier, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userID]
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, userID)
		return "", false, nil
	}
	return e.tier, true, nil
}

func (c *MemoryCache) Set(_ context.Context, userID uuid.UUID, tier access.Tier, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = memoryEntry{tier: tier, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}
