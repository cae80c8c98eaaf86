package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMerchantToken_NeedsRefresh(t *testing.T) {
	now := time.Now()
	window := 48 * time.Hour

	t.Run("far from expiry does not need refresh", func(t *testing.T) {
		token := &MerchantToken{ExpiresAt: now.Add(10 * 24 * time.Hour)}
		assert.False(t, token.NeedsRefresh(now, window))
	})

	t.Run("inside refresh window needs refresh", func(t *testing.T) {
		token := &MerchantToken{ExpiresAt: now.Add(time.Hour)}
		assert.True(t, token.NeedsRefresh(now, window))
	})

	t.Run("already expired needs refresh", func(t *testing.T) {
		token := &MerchantToken{ExpiresAt: now.Add(-time.Minute)}
		assert.True(t, token.NeedsRefresh(now, window))
	})
}

func TestMerchantToken_IsLockStale(t *testing.T) {
	now := time.Now()
	timeout := 30 * time.Second

	t.Run("unlocked record is never stale", func(t *testing.T) {
		token := &MerchantToken{IsRefreshing: false, LastRefreshedAt: now.Add(-time.Hour)}
		assert.False(t, token.IsLockStale(now, timeout))
	})

	t.Run("fresh lock is not stale", func(t *testing.T) {
		token := &MerchantToken{IsRefreshing: true, LastRefreshedAt: now.Add(-5 * time.Second)}
		assert.False(t, token.IsLockStale(now, timeout))
	})

	t.Run("lock older than timeout is stale", func(t *testing.T) {
		token := &MerchantToken{IsRefreshing: true, LastRefreshedAt: now.Add(-31 * time.Second)}
		assert.True(t, token.IsLockStale(now, timeout))
	})
}

func TestMerchantToken_ApplyGrant(t *testing.T) {
	now := time.Now()
	token := &MerchantToken{
		MerchantID:      "M1",
		AccessToken:     "old-access",
		RefreshToken:    "old-refresh",
		ExpiresAt:       now.Add(time.Hour),
		Scope:           "offline_access",
		IsRefreshing:    true,
		RefreshAttempts: 2,
	}

	grant := &TokenGrant{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    1209600, // 14 days
		TokenType:    "bearer",
	}
	token.ApplyGrant(grant, now)

	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.Equal(t, now.Add(14*24*time.Hour), token.ExpiresAt)
	assert.Equal(t, "offline_access", token.Scope, "empty grant scope keeps the old one")
	assert.False(t, token.IsRefreshing)
	assert.Equal(t, 0, token.RefreshAttempts)
	assert.Equal(t, now, token.LastRefreshedAt)
}
