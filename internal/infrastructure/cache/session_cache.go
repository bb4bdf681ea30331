package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/taxsync/internal/domain/session"
	"github.com/erp/taxsync/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSessionCache is a read-through cache in front of a session store.
// Redis failures never fail the operation; the store remains the source of
// truth and cache misses simply fall through to it.
type RedisSessionCache struct {
	inner     session.Store
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisSessionCache creates a session cache backed by a new Redis client
func NewRedisSessionCache(cfg config.RedisConfig, inner session.Store, ttl time.Duration, logger *zap.Logger) (*RedisSessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSessionCacheWithClient(client, inner, ttl, logger), nil
}

// NewRedisSessionCacheWithClient creates a session cache with an existing
// Redis client. This is useful for testing or when sharing a client.
func NewRedisSessionCacheWithClient(client *redis.Client, inner session.Store, ttl time.Duration, logger *zap.Logger) *RedisSessionCache {
	return &RedisSessionCache{
		inner:     inner,
		client:    client,
		ttl:       ttl,
		keyPrefix: "session:tenant:",
		logger:    logger.Named("session_cache"),
	}
}

func (c *RedisSessionCache) key(tenantID string) string {
	return c.keyPrefix + tenantID
}

// Store writes through to the underlying store and refreshes the cache
func (c *RedisSessionCache) Store(ctx context.Context, s *session.Session) error {
	if err := c.inner.Store(ctx, s); err != nil {
		return err
	}
	c.put(ctx, s)
	return nil
}

// GetValid checks the cache first and falls through to the store on a miss.
// Store hits are backfilled into the cache.
func (c *RedisSessionCache) GetValid(ctx context.Context, tenantID string) (*session.Session, error) {
	if cached := c.get(ctx, tenantID); cached != nil {
		return cached, nil
	}

	s, err := c.inner.GetValid(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.put(ctx, s)
	return s, nil
}

// Revoke revokes through the store and drops the cache entry
func (c *RedisSessionCache) Revoke(ctx context.Context, tenantID string) (int64, error) {
	count, err := c.inner.Revoke(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		c.logger.Warn("Failed to drop cached session", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	return count, nil
}

// Info is not cached; token lookups go straight to the store
func (c *RedisSessionCache) Info(ctx context.Context, token string) (*session.Session, error) {
	return c.inner.Info(ctx, token)
}

// Touch passes usage updates straight to the store. The cached copy keeps
// its stale LastUsedAt; validity never depends on it.
func (c *RedisSessionCache) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return c.inner.Touch(ctx, id, at)
}

// Close closes the Redis client
func (c *RedisSessionCache) Close() error {
	return c.client.Close()
}

func (c *RedisSessionCache) get(ctx context.Context, tenantID string) *session.Session {
	data, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Session cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return nil
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		c.logger.Warn("Dropping undecodable cached session", zap.String("tenant_id", tenantID), zap.Error(err))
		_ = c.client.Del(ctx, c.key(tenantID)).Err()
		return nil
	}

	if !s.IsValid(time.Now()) {
		_ = c.client.Del(ctx, c.key(tenantID)).Err()
		return nil
	}
	return &s
}

func (c *RedisSessionCache) put(ctx context.Context, s *session.Session) {
	ttl := c.ttl
	if remaining := time.Until(s.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("Failed to encode session for cache", zap.String("tenant_id", s.TenantID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(s.TenantID), data, ttl).Err(); err != nil {
		c.logger.Warn("Session cache write failed", zap.String("tenant_id", s.TenantID), zap.Error(err))
	}
}

// Ensure RedisSessionCache implements session.Store
var _ session.Store = (*RedisSessionCache)(nil)
