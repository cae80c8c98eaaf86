package credential

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// LockManagerConfig holds refresh-lock tuning parameters
type LockManagerConfig struct {
	// LockTimeout is how long a held lock may age before it is treated as
	// abandoned and reclaimed
	LockTimeout time.Duration
	// MaxRetries is how many acquisition rounds to attempt while a live
	// competing refresh holds the lock
	MaxRetries int
	// RetryBackoff is the base wait between rounds; round n waits n*RetryBackoff
	RetryBackoff time.Duration
}

// DefaultLockManagerConfig returns the default lock configuration
func DefaultLockManagerConfig() LockManagerConfig {
	return LockManagerConfig{
		LockTimeout:  30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// LockManager grants a single caller exclusive rights to refresh a
// merchant's token. The lock lives in the merchant's database row, not in
// process memory, so exclusion holds across server instances; a staleness
// timeout breaks locks left behind by crashed holders.
type LockManager struct {
	repo   credential.MerchantTokenRepository
	config LockManagerConfig
	logger *zap.Logger
}

// NewLockManager creates a new LockManager
func NewLockManager(repo credential.MerchantTokenRepository, config LockManagerConfig, logger *zap.Logger) *LockManager {
	return &LockManager{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// Acquire takes the refresh lock for a merchant. It returns
// credential.ErrLockUnavailable once the retry budget is exhausted, and
// passes repository errors (including credential.ErrTokenNotFound)
// through unchanged.
func (m *LockManager) Acquire(ctx context.Context, merchantID string) error {
	for attempt := 1; attempt <= m.config.MaxRetries; attempt++ {
		now := time.Now()

		record, err := m.repo.FindByMerchant(ctx, merchantID)
		if err != nil {
			return err
		}

		if !record.IsRefreshing {
			acquired, err := m.repo.TryAcquireLock(ctx, merchantID, now)
			if err != nil {
				return err
			}
			if acquired {
				return nil
			}
			// Lost the conditional-update race; treat like a held lock.
		} else if record.IsLockStale(now, m.config.LockTimeout) {
			// The holder is presumed crashed mid-refresh. The reclaim is
			// conditional on the lock still being stale so two overriders
			// cannot both win.
			reclaimed, err := m.repo.ForceAcquireLock(ctx, merchantID, now.Add(-m.config.LockTimeout), now)
			if err != nil {
				return err
			}
			if reclaimed {
				m.logger.Warn("Reclaimed stale refresh lock",
					zap.String("merchant_id", merchantID),
					zap.Duration("lock_age", record.LockAge(now)),
					zap.Duration("lock_timeout", m.config.LockTimeout),
				)
				return nil
			}
		}

		if attempt < m.config.MaxRetries {
			wait := time.Duration(attempt) * m.config.RetryBackoff
			m.logger.Debug("Refresh lock held, waiting",
				zap.String("merchant_id", merchantID),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	m.logger.Warn("Refresh lock unavailable after retries",
		zap.String("merchant_id", merchantID),
		zap.Int("max_retries", m.config.MaxRetries),
	)
	return credential.ErrLockUnavailable
}

// Release frees the lock after a refresh attempt that produced no new
// token material. success=false increments the merchant's failure
// counter.
func (m *LockManager) Release(ctx context.Context, merchantID string, success bool) error {
	return m.repo.ReleaseLock(ctx, merchantID, success)
}
