package credential

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// SweeperConfig holds sweep selection parameters
type SweeperConfig struct {
	// RefreshWindow is the margin before expiry at which a record becomes
	// due for a proactive refresh
	RefreshWindow time.Duration
	// ForcedRefreshInterval is the maximum allowed age of the last
	// refresh attempt regardless of computed expiry
	ForcedRefreshInterval time.Duration
}

// DefaultSweeperConfig returns the default sweeper configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		RefreshWindow:         48 * time.Hour,
		ForcedRefreshInterval: 7 * 24 * time.Hour,
	}
}

// SweepStats summarizes one sweep run
type SweepStats struct {
	SweepID   uuid.UUID `json:"sweep_id"`
	Due       int       `json:"due"`
	Refreshed int       `json:"refreshed"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Took      string    `json:"took"`
}

// ExpirySweeper proactively refreshes tokens for merchants with no live
// traffic, so no integration silently goes dark. It shares the refresh
// path (and therefore the per-merchant lock) with on-demand refreshes.
type ExpirySweeper struct {
	repo      credential.MerchantTokenRepository
	refresher Refresher
	config    SweeperConfig
	logger    *zap.Logger
}

// NewExpirySweeper creates a new ExpirySweeper
func NewExpirySweeper(
	repo credential.MerchantTokenRepository,
	refresher Refresher,
	config SweeperConfig,
	logger *zap.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		repo:      repo,
		refresher: refresher,
		config:    config,
		logger:    logger,
	}
}

// Sweep refreshes every merchant whose token is inside the refresh window
// or whose last refresh is older than the forced interval. Merchants are
// processed sequentially to avoid hammering the provider's token
// endpoint; an individual failure is logged and the sweep moves on.
func (s *ExpirySweeper) Sweep(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{
		SweepID:   uuid.New(),
		StartedAt: time.Now(),
	}

	now := time.Now()
	due, err := s.repo.FindDueForRefresh(ctx, now, s.config.RefreshWindow, now.Add(-s.config.ForcedRefreshInterval))
	if err != nil {
		s.logger.Error("Failed to query tokens due for refresh",
			zap.String("sweep_id", stats.SweepID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	stats.Due = len(due)
	if stats.Due == 0 {
		s.logger.Debug("No merchant tokens due for refresh",
			zap.String("sweep_id", stats.SweepID.String()),
		)
		stats.Took = time.Since(stats.StartedAt).String()
		return stats, nil
	}

	s.logger.Info("Starting token sweep",
		zap.String("sweep_id", stats.SweepID.String()),
		zap.Int("due", stats.Due),
	)

	for _, record := range due {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Token sweep cancelled",
				zap.String("sweep_id", stats.SweepID.String()),
				zap.Int("remaining", stats.Due-stats.Refreshed-stats.Failed),
			)
			stats.Took = time.Since(stats.StartedAt).String()
			return stats, err
		}

		// Records picked up by the forced-interval arm are nowhere near
		// expiry, so the convergent Refresh would skip their exchange;
		// they need the forced entry point to actually rotate.
		refresh := s.refresher.Refresh
		if !record.NeedsRefresh(now, s.config.RefreshWindow) {
			refresh = s.refresher.ForceRefresh
		}

		if _, err := refresh(ctx, record.MerchantID); err != nil {
			stats.Failed++
			s.logger.Error("Sweep refresh failed",
				zap.String("sweep_id", stats.SweepID.String()),
				zap.String("merchant_id", record.MerchantID),
				zap.Int("refresh_attempts", record.RefreshAttempts),
				zap.Error(err),
			)
			continue
		}
		stats.Refreshed++
	}

	stats.Took = time.Since(stats.StartedAt).String()
	s.logger.Info("Token sweep completed",
		zap.String("sweep_id", stats.SweepID.String()),
		zap.Int("due", stats.Due),
		zap.Int("refreshed", stats.Refreshed),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}
