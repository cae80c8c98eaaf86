package credential

import (
	"context"
	"time"
)

// MerchantTokenRepository is the persistence port for merchant token
// records. All mutation of a record's lock state goes through the
// conditional operations here; the row in the database is the single
// source of truth for the lock, which is what makes the refresh path
// correct across multiple server instances.
type MerchantTokenRepository interface {
	// FindByMerchant returns the token record for a merchant, or
	// shared.ErrNotFound-equivalent ErrTokenNotFound if none exists.
	FindByMerchant(ctx context.Context, merchantID string) (*MerchantToken, error)

	// Save replaces the full record in a single atomic write. Used after
	// a successful refresh; the written record carries the new token
	// pair, IsRefreshing=false and RefreshAttempts=0.
	Save(ctx context.Context, token *MerchantToken) error

	// TryAcquireLock attempts to take the refresh lock with a single
	// conditional update on IsRefreshing=false. Exactly one concurrent
	// caller observes true; on success the stored LastRefreshedAt is set
	// to now.
	TryAcquireLock(ctx context.Context, merchantID string, now time.Time) (bool, error)

	// ForceAcquireLock reclaims a lock whose holder is presumed crashed.
	// The update is conditional on the lock still being held and its
	// LastRefreshedAt at or before staleBefore, so concurrent overriders
	// cannot both win.
	ForceAcquireLock(ctx context.Context, merchantID string, staleBefore, now time.Time) (bool, error)

	// ReleaseLock clears IsRefreshing. With success=false it increments
	// RefreshAttempts; with success=true it resets the counter. A refresh
	// that produced new token material releases the lock through Save
	// instead, in the same write as the new token pair.
	ReleaseLock(ctx context.Context, merchantID string, success bool) error

	// FindDueForRefresh returns records that are within refreshWindow of
	// expiry or whose last refresh is older than forcedBefore, excluding
	// rows currently being refreshed.
	FindDueForRefresh(ctx context.Context, now time.Time, refreshWindow time.Duration, forcedBefore time.Time) ([]MerchantToken, error)
}

// TokenExchanger is the port to the provider's token endpoint. A call is
// at-most-once-effective: the provider may invalidate the submitted
// refresh token even when the response is lost.
type TokenExchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error)
}

// TokenCache is an optional read-through cache in front of the token
// store's fast path. It is best effort and never the source of truth:
// implementations swallow backend failures, and the refresh path always
// goes to the repository.
type TokenCache interface {
	Get(ctx context.Context, merchantID string) (string, bool)
	Set(ctx context.Context, merchantID, accessToken string, ttl time.Duration)
	Invalidate(ctx context.Context, merchantID string)
}
