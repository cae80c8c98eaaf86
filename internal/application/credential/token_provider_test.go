package credential

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// refresherFunc adapts a function to the Refresher interface
type refresherFunc func(ctx context.Context, merchantID string) (string, error)

func (f refresherFunc) Refresh(ctx context.Context, merchantID string) (string, error) {
	return f(ctx, merchantID)
}

func (f refresherFunc) ForceRefresh(ctx context.Context, merchantID string) (string, error) {
	return f(ctx, merchantID)
}

// fakeTokenCache is a map-backed TokenCache for provider tests
type fakeTokenCache struct {
	mu     sync.Mutex
	tokens map[string]string
	sets   int
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{tokens: make(map[string]string)}
}

func (c *fakeTokenCache) Get(_ context.Context, merchantID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens[merchantID]
	return token, ok
}

func (c *fakeTokenCache) Set(_ context.Context, merchantID, accessToken string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[merchantID] = accessToken
	c.sets++
}

func (c *fakeTokenCache) Invalidate(_ context.Context, merchantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, merchantID)
}

func TestTokenProvider_GetToken_FastPath(t *testing.T) {
	record := expiringRecord("M1")
	record.ExpiresAt = time.Now().Add(10 * 24 * time.Hour)
	repo := newMemoryTokenRepo(record)
	refreshes := 0
	provider := NewTokenProvider(repo, refresherFunc(func(context.Context, string) (string, error) {
		refreshes++
		return "", nil
	}), nil, 48*time.Hour, zap.NewNop())

	token, err := provider.GetToken(context.Background(), "M1")

	require.NoError(t, err)
	assert.Equal(t, "old-access", token)
	assert.Zero(t, refreshes, "no refresh outside the expiry window")
}

func TestTokenProvider_GetToken_UnknownMerchant(t *testing.T) {
	repo := newMemoryTokenRepo()
	provider := NewTokenProvider(repo, refresherFunc(func(context.Context, string) (string, error) {
		t.Fatal("refresher must not be called for unknown merchants")
		return "", nil
	}), nil, 48*time.Hour, zap.NewNop())

	_, err := provider.GetToken(context.Background(), "missing")

	assert.ErrorIs(t, err, credential.ErrTokenNotFound)
}

func TestTokenProvider_GetToken_NearExpiryDelegatesToRefresh(t *testing.T) {
	repo := newMemoryTokenRepo(expiringRecord("M1"))
	var refreshed string
	provider := NewTokenProvider(repo, refresherFunc(func(_ context.Context, merchantID string) (string, error) {
		refreshed = merchantID
		return "refreshed-access", nil
	}), nil, 48*time.Hour, zap.NewNop())

	token, err := provider.GetToken(context.Background(), "M1")

	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", token)
	assert.Equal(t, "M1", refreshed)
}

func TestTokenProvider_GetToken_CacheHitSkipsStore(t *testing.T) {
	cache := newFakeTokenCache()
	cache.Set(context.Background(), "M1", "cached-access", time.Hour)
	repo := newMemoryTokenRepo() // empty on purpose
	provider := NewTokenProvider(repo, nil, cache, 48*time.Hour, zap.NewNop())

	token, err := provider.GetToken(context.Background(), "M1")

	require.NoError(t, err)
	assert.Equal(t, "cached-access", token)
}

func TestTokenProvider_GetToken_FastPathPopulatesCache(t *testing.T) {
	record := expiringRecord("M1")
	record.ExpiresAt = time.Now().Add(10 * 24 * time.Hour)
	repo := newMemoryTokenRepo(record)
	cache := newFakeTokenCache()
	provider := NewTokenProvider(repo, nil, cache, 48*time.Hour, zap.NewNop())

	_, err := provider.GetToken(context.Background(), "M1")

	require.NoError(t, err)
	cached, ok := cache.Get(context.Background(), "M1")
	assert.True(t, ok)
	assert.Equal(t, "old-access", cached)
}

// End-to-end through the real refresh service: a token one hour from
// expiry with a 2-day window forces a refresh; the provider reports a
// 14-day lifetime and the stored record reflects it.
func TestTokenProvider_GetToken_RefreshScenario(t *testing.T) {
	repo := newMemoryTokenRepo(expiringRecord("M1"))
	exchanger := &countingExchanger{grant: fourteenDayGrant()}
	service := newRefreshService(repo, exchanger, fastRefreshConfig(), fastLockConfig())
	provider := NewTokenProvider(repo, service, nil, 48*time.Hour, zap.NewNop())

	token, err := provider.GetToken(context.Background(), "M1")

	require.NoError(t, err)
	assert.Equal(t, "new-access", token)
	assert.Equal(t, 1, exchanger.callCount())

	stored := repo.get("M1")
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), stored.ExpiresAt, time.Minute)
	assert.Equal(t, 0, stored.RefreshAttempts)
}

func TestTokenProvider_ConcurrentGetToken_SingleExchange(t *testing.T) {
	repo := newMemoryTokenRepo(expiringRecord("M1"))
	exchanger := &countingExchanger{
		delay: 15 * time.Millisecond,
		grant: fourteenDayGrant(),
	}
	lockConfig := LockManagerConfig{
		LockTimeout:  30 * time.Second,
		MaxRetries:   5,
		RetryBackoff: 25 * time.Millisecond,
	}
	service := newRefreshService(repo, exchanger, fastRefreshConfig(), lockConfig)
	provider := NewTokenProvider(repo, service, nil, 48*time.Hour, zap.NewNop())

	const callers = 6
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = provider.GetToken(context.Background(), "M1")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, exchanger.callCount())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Equal(t, "new-access", tokens[i], "caller %d", i)
	}
}
