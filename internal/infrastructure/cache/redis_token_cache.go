package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// defaultTokenKeyPrefix namespaces token keys in a shared Redis
const defaultTokenKeyPrefix = "credential:token:"

// RedisTokenCache implements credential.TokenCache on Redis. It is suitable
// for distributed deployments where multiple instances serve the same
// merchants. Backend failures are logged and swallowed; the caller falls
// back to the database.
type RedisTokenCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenCache creates a Redis-backed token cache and verifies the
// connection
func NewRedisTokenCache(cfg RedisConfig, logger *zap.Logger) (*RedisTokenCache, error) {
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

	return &RedisTokenCache{
		client:    client,
		keyPrefix: defaultTokenKeyPrefix,
		logger:    logger,
	}, nil
}

// NewRedisTokenCacheWithClient creates a cache with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisTokenCacheWithClient(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisTokenCache {
	if keyPrefix == "" {
		keyPrefix = defaultTokenKeyPrefix
	}
	return &RedisTokenCache{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// Get returns the cached access token for the merchant, if present
func (c *RedisTokenCache) Get(ctx context.Context, merchantID string) (string, bool) {
	token, err := c.client.Get(ctx, c.keyPrefix+merchantID).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Token cache read failed",
				zap.String("merchant_id", merchantID),
				zap.Error(err))
		}
		return "", false
	}
	return token, true
}

// Set stores the access token with the given TTL. Non-positive TTLs are
// ignored so an already-expiring token never lingers in the cache.
func (c *RedisTokenCache) Set(ctx context.Context, merchantID, accessToken string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, c.keyPrefix+merchantID, accessToken, ttl).Err(); err != nil {
		c.logger.Warn("Token cache write failed",
			zap.String("merchant_id", merchantID),
			zap.Error(err))
	}
}

// Invalidate drops the merchant's cached token
func (c *RedisTokenCache) Invalidate(ctx context.Context, merchantID string) {
	if err := c.client.Del(ctx, c.keyPrefix+merchantID).Err(); err != nil {
		c.logger.Warn("Token cache invalidation failed",
			zap.String("merchant_id", merchantID),
			zap.Error(err))
	}
}

// Close closes the Redis client
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}

// Ensure RedisTokenCache implements the cache port
var _ credential.TokenCache = (*RedisTokenCache)(nil)
