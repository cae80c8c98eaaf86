package credential

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// Refresher performs a locked token refresh for one merchant. Refresh
// skips the exchange when the stored token turns out to still be fresh
// after the lock is won; ForceRefresh always exchanges, for callers that
// need the credential rotated regardless of its remaining lifetime.
type Refresher interface {
	Refresh(ctx context.Context, merchantID string) (string, error)
	ForceRefresh(ctx context.Context, merchantID string) (string, error)
}

// RefreshConfig holds refresh orchestration parameters
type RefreshConfig struct {
	// RefreshWindow is the safety margin before expiry at which a token
	// counts as needing refresh
	RefreshWindow time.Duration
	// MaxRetries bounds how many times the exchange is attempted
	MaxRetries int
	// RetryBackoff is the base wait between attempts; attempt n waits n*RetryBackoff
	RetryBackoff time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		RefreshWindow: 48 * time.Hour,
		MaxRetries:    3,
		RetryBackoff:  time.Second,
	}
}

// RefreshService coordinates the token exchange with the provider and
// reconciles the stored record regardless of outcome. All refreshes for a
// merchant are serialized through the LockManager, so on-demand and
// scheduled refreshes never race each other.
type RefreshService struct {
	repo      credential.MerchantTokenRepository
	exchanger credential.TokenExchanger
	locks     *LockManager
	cache     credential.TokenCache
	config    RefreshConfig
	logger    *zap.Logger
}

// NewRefreshService creates a new RefreshService. cache may be nil.
func NewRefreshService(
	repo credential.MerchantTokenRepository,
	exchanger credential.TokenExchanger,
	locks *LockManager,
	cache credential.TokenCache,
	config RefreshConfig,
	logger *zap.Logger,
) *RefreshService {
	return &RefreshService{
		repo:      repo,
		exchanger: exchanger,
		locks:     locks,
		cache:     cache,
		config:    config,
		logger:    logger,
	}
}

// Refresh exchanges the merchant's refresh token for a new token pair and
// returns the new access token. A failed exchange never clears the stored
// token material; the stale pair stays in place so later calls keep
// attempting refresh instead of being left with no credential at all.
func (s *RefreshService) Refresh(ctx context.Context, merchantID string) (string, error) {
	return s.refresh(ctx, merchantID, false)
}

// ForceRefresh exchanges the merchant's refresh token even when the stored
// token is nowhere near expiry. The sweep's forced-interval backstop and
// the manual refresh endpoint use it: a plain Refresh would treat their
// far-from-expiry records as already handled and never rotate them.
func (s *RefreshService) ForceRefresh(ctx context.Context, merchantID string) (string, error) {
	return s.refresh(ctx, merchantID, true)
}

func (s *RefreshService) refresh(ctx context.Context, merchantID string, force bool) (string, error) {
	if err := s.locks.Acquire(ctx, merchantID); err != nil {
		return "", err
	}

	record, err := s.repo.FindByMerchant(ctx, merchantID)
	if err != nil {
		s.releaseQuietly(ctx, merchantID, false)
		return "", err
	}

	// A competing refresh may have finished while we waited for the lock.
	// Returning its result here is what makes N concurrent callers
	// converge on a single exchange. A forced refresh must not take this
	// exit: its record is far from expiry by definition, so the skip would
	// turn the forced rotation into a no-op.
	if !force && !record.NeedsRefresh(time.Now(), s.config.RefreshWindow) {
		s.releaseQuietly(ctx, merchantID, true)
		return record.AccessToken, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxRetries; attempt++ {
		grant, err := s.exchanger.ExchangeRefreshToken(ctx, record.RefreshToken)
		if err == nil {
			now := time.Now()
			record.ApplyGrant(grant, now)
			if err := s.repo.Save(ctx, record); err != nil {
				// The provider already consumed the old refresh token; a
				// second exchange would replay a dead credential. Give up
				// rather than retry.
				s.releaseQuietly(ctx, merchantID, false)
				return "", fmt.Errorf("%w: persisting refreshed token: %v", credential.ErrRefreshFailed, err)
			}
			s.cacheGrant(ctx, merchantID, record)
			s.logger.Info("Merchant token refreshed",
				zap.String("merchant_id", merchantID),
				zap.Time("expires_at", record.ExpiresAt),
				zap.Int("attempt", attempt),
			)
			return record.AccessToken, nil
		}

		lastErr = err
		s.logger.Warn("Token refresh attempt failed",
			zap.String("merchant_id", merchantID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", s.config.MaxRetries),
			zap.Error(err),
		)
		s.releaseQuietly(ctx, merchantID, false)

		if attempt == s.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * s.config.RetryBackoff):
		}

		// Retry the whole refresh, lock acquisition included.
		if err := s.locks.Acquire(ctx, merchantID); err != nil {
			return "", err
		}
		record, err = s.repo.FindByMerchant(ctx, merchantID)
		if err != nil {
			s.releaseQuietly(ctx, merchantID, false)
			return "", err
		}
		if !force && !record.NeedsRefresh(time.Now(), s.config.RefreshWindow) {
			s.releaseQuietly(ctx, merchantID, true)
			return record.AccessToken, nil
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, merchantID)
	}
	return "", fmt.Errorf("%w: %v", credential.ErrRefreshFailed, lastErr)
}

// cacheGrant stores the fresh access token for fast-path reads. The TTL
// stops at the refresh window so a cached token can never mask a due
// refresh.
func (s *RefreshService) cacheGrant(ctx context.Context, merchantID string, record *credential.MerchantToken) {
	if s.cache == nil {
		return
	}
	ttl := record.TimeToExpiry(time.Now()) - s.config.RefreshWindow
	if ttl <= 0 {
		s.cache.Invalidate(ctx, merchantID)
		return
	}
	s.cache.Set(ctx, merchantID, record.AccessToken, ttl)
}

func (s *RefreshService) releaseQuietly(ctx context.Context, merchantID string, success bool) {
	if err := s.locks.Release(ctx, merchantID, success); err != nil {
		s.logger.Error("Failed to release refresh lock",
			zap.String("merchant_id", merchantID),
			zap.Bool("success", success),
			zap.Error(err),
		)
	}
}

var _ Refresher = (*RefreshService)(nil)
