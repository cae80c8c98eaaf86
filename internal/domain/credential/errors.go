package credential

import "errors"

var (
	// ErrTokenNotFound indicates no token record exists for the merchant
	// (the app was never installed or authorization was revoked).
	ErrTokenNotFound = errors.New("credential: merchant token not found")

	// ErrLockUnavailable indicates the per-merchant refresh lock could not
	// be acquired within the retry budget.
	ErrLockUnavailable = errors.New("credential: refresh lock unavailable")

	// ErrRefreshFailed indicates the provider rejected the refresh exchange
	// or the exchange kept failing at the transport level.
	ErrRefreshFailed = errors.New("credential: token refresh failed")

	// ErrInvalidTokenResponse indicates the provider returned 2xx but the
	// body lacked required fields.
	ErrInvalidTokenResponse = errors.New("credential: invalid token response")
)
