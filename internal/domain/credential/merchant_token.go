package credential

import (
	"time"
)

// MerchantToken is the per-merchant OAuth credential record. There is
// exactly one row per merchant; it is created at app-authorization time
// and mutated only by the refresh path afterwards.
type MerchantToken struct {
	// MerchantID is the opaque platform identifier for the merchant.
	MerchantID string
	// AccessToken authenticates outbound platform API calls.
	AccessToken string
	// RefreshToken is exchanged for a new token pair. The provider may
	// invalidate it on first use, so single-use semantics are assumed.
	RefreshToken string
	// ExpiresAt is the absolute instant the access token becomes invalid,
	// always derived from the provider's reported lifetime at issuance.
	ExpiresAt time.Time
	// Scope is informational only.
	Scope string
	// LastRefreshedAt is the time of the last refresh attempt. While
	// IsRefreshing is true it doubles as the lock-acquired-at timestamp.
	LastRefreshedAt time.Time
	// IsRefreshing is the per-merchant refresh lock flag.
	IsRefreshing bool
	// RefreshAttempts counts consecutive failed refreshes since the last
	// success.
	RefreshAttempts int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TokenGrant is the result of a successful refresh exchange with the
// provider's token endpoint.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds
	TokenType    string
	Scope        string
}

// TimeToExpiry returns how long the access token remains valid at now.
// Negative if already expired.
func (t *MerchantToken) TimeToExpiry(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// NeedsRefresh reports whether the token is within the refresh window of
// its expiry.
func (t *MerchantToken) NeedsRefresh(now time.Time, refreshWindow time.Duration) bool {
	return t.TimeToExpiry(now) < refreshWindow
}

// LockAge returns how long the refresh lock has been held. Meaningful
// only while IsRefreshing is true.
func (t *MerchantToken) LockAge(now time.Time) time.Duration {
	return now.Sub(t.LastRefreshedAt)
}

// IsLockStale reports whether a held lock has exceeded the staleness
// timeout and may be forcibly reclaimed.
func (t *MerchantToken) IsLockStale(now time.Time, lockTimeout time.Duration) bool {
	return t.IsRefreshing && t.LockAge(now) >= lockTimeout
}

// ApplyGrant replaces the token material with the result of a successful
// refresh. Access and refresh tokens are only ever updated together, and
// the record leaves the refreshing state with its failure counter reset.
func (t *MerchantToken) ApplyGrant(grant *TokenGrant, now time.Time) {
	t.AccessToken = grant.AccessToken
	t.RefreshToken = grant.RefreshToken
	t.ExpiresAt = now.Add(time.Duration(grant.ExpiresIn) * time.Second)
	if grant.Scope != "" {
		t.Scope = grant.Scope
	}
	t.LastRefreshedAt = now
	t.IsRefreshing = false
	t.RefreshAttempts = 0
	t.UpdatedAt = now
}
