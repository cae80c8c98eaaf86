package credential

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// TokenProvider is the single entry point every outbound platform call
// uses to obtain a usable access token. The common path is a plain read
// with no lock contention; refresh is only triggered inside the safety
// window before expiry.
type TokenProvider struct {
	repo          credential.MerchantTokenRepository
	refresher     Refresher
	cache         credential.TokenCache
	refreshWindow time.Duration
	logger        *zap.Logger
}

// NewTokenProvider creates a new TokenProvider. cache may be nil.
func NewTokenProvider(
	repo credential.MerchantTokenRepository,
	refresher Refresher,
	cache credential.TokenCache,
	refreshWindow time.Duration,
	logger *zap.Logger,
) *TokenProvider {
	return &TokenProvider{
		repo:          repo,
		refresher:     refresher,
		cache:         cache,
		refreshWindow: refreshWindow,
		logger:        logger,
	}
}

// GetToken returns a valid access token for the merchant, transparently
// refreshing when the stored token is within the refresh window of its
// expiry. It returns credential.ErrTokenNotFound for merchants that never
// authorized the app, and credential.ErrLockUnavailable or
// credential.ErrRefreshFailed when a needed refresh could not be
// performed.
func (p *TokenProvider) GetToken(ctx context.Context, merchantID string) (string, error) {
	if p.cache != nil {
		if token, ok := p.cache.Get(ctx, merchantID); ok {
			return token, nil
		}
	}

	record, err := p.repo.FindByMerchant(ctx, merchantID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if !record.NeedsRefresh(now, p.refreshWindow) {
		if p.cache != nil {
			if ttl := record.TimeToExpiry(now) - p.refreshWindow; ttl > 0 {
				p.cache.Set(ctx, merchantID, record.AccessToken, ttl)
			}
		}
		return record.AccessToken, nil
	}

	p.logger.Debug("Token nearing expiry, refreshing",
		zap.String("merchant_id", merchantID),
		zap.Time("expires_at", record.ExpiresAt),
		zap.Duration("time_to_expiry", record.TimeToExpiry(now)),
	)
	return p.refresher.Refresh(ctx, merchantID)
}
