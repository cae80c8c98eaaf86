package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appcredential "github.com/opsdesk/backend/internal/application/credential"
)

// TokenSweepTriggerConfig holds configuration for the periodic token sweep
type TokenSweepTriggerConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
}

// DefaultTokenSweepTriggerConfig returns default configuration
func DefaultTokenSweepTriggerConfig() TokenSweepTriggerConfig {
	return TokenSweepTriggerConfig{
		Interval: time.Hour,
	}
}

// TokenSweepTrigger periodically runs the expiry sweep so merchant tokens
// are refreshed before live traffic finds them expired.
type TokenSweepTrigger struct {
	config  TokenSweepTriggerConfig
	sweeper *appcredential.ExpirySweeper
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTokenSweepTrigger creates a new token sweep trigger
func NewTokenSweepTrigger(
	config TokenSweepTriggerConfig,
	sweeper *appcredential.ExpirySweeper,
	logger *zap.Logger,
) *TokenSweepTrigger {
	if config.Interval <= 0 {
		config.Interval = DefaultTokenSweepTriggerConfig().Interval
	}
	return &TokenSweepTrigger{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Start starts the sweep loop
func (t *TokenSweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Token sweep trigger started",
		zap.Duration("interval", t.config.Interval),
	)

	return nil
}

// Stop stops the sweep loop, waiting for an in-flight sweep to finish
func (t *TokenSweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Token sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop runs one sweep per tick until the context is cancelled
func (t *TokenSweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	// Run immediately on start so a long interval does not delay the
	// first sweep after a deploy
	t.runSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runSweep(ctx)
		}
	}
}

// runSweep executes a single sweep and logs the outcome
func (t *TokenSweepTrigger) runSweep(ctx context.Context) {
	stats, err := t.sweeper.Sweep(ctx)
	if err != nil {
		t.logger.Error("Scheduled token sweep failed", zap.Error(err))
		return
	}

	if stats.Failed > 0 {
		t.logger.Warn("Scheduled token sweep completed with failures",
			zap.String("sweep_id", stats.SweepID.String()),
			zap.Int("due", stats.Due),
			zap.Int("refreshed", stats.Refreshed),
			zap.Int("failed", stats.Failed),
		)
		return
	}

	t.logger.Debug("Scheduled token sweep completed",
		zap.String("sweep_id", stats.SweepID.String()),
		zap.Int("due", stats.Due),
		zap.Int("refreshed", stats.Refreshed),
	)
}
