package cache

import (
	"context"
	"sync"
	"time"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// InMemoryTokenCache implements credential.TokenCache with process-local
// storage. Suitable for single-instance deployments and tests; a clustered
// deployment should use RedisTokenCache so invalidations reach every node.
type InMemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]tokenEntry
}

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// NewInMemoryTokenCache creates an empty in-memory token cache
func NewInMemoryTokenCache() *InMemoryTokenCache {
	return &InMemoryTokenCache{
		entries: make(map[string]tokenEntry),
	}
}

// Get returns the cached access token for the merchant, if present and
// not expired
func (c *InMemoryTokenCache) Get(_ context.Context, merchantID string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[merchantID]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		// Lazy eviction; the map stays small (one entry per merchant)
		c.mu.Lock()
		if current, still := c.entries[merchantID]; still && current == entry {
			delete(c.entries, merchantID)
		}
		c.mu.Unlock()
		return "", false
	}
	return entry.token, true
}

// Set stores the access token with the given TTL
func (c *InMemoryTokenCache) Set(_ context.Context, merchantID, accessToken string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[merchantID] = tokenEntry{
		token:     accessToken,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops the merchant's cached token
func (c *InMemoryTokenCache) Invalidate(_ context.Context, merchantID string) {
	c.mu.Lock()
	delete(c.entries, merchantID)
	c.mu.Unlock()
}

// Ensure InMemoryTokenCache implements the cache port
var _ credential.TokenCache = (*InMemoryTokenCache)(nil)
