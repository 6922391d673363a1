package background

import (
	"context"
	"log/slog"
	"time"
)

// ResetTokenPurger removes reset tokens past their expiry
type ResetTokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// AttemptPruner removes attempt-ledger rows past the retention window
type AttemptPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically purges expired reset tokens and aged login
// attempts. Expiry checks are done at read time, so this loop is purely
// housekeeping; a missed run never changes behavior.
type CleanupManager struct {
	resetTokens      ResetTokenPurger
	attempts         AttemptPruner
	logger           *slog.Logger
	interval         time.Duration
	attemptRetention time.Duration
	stopCh           chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	resetTokens ResetTokenPurger,
	attempts AttemptPruner,
	logger *slog.Logger,
	interval time.Duration,
	attemptRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		resetTokens:      resetTokens,
		attempts:         attempts,
		logger:           logger,
		interval:         interval,
		attemptRetention: attemptRetention,
		stopCh:           make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	purged, err := cm.resetTokens.PurgeExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to purge expired reset tokens", slog.Any("error", err))
	} else if purged > 0 {
		cm.logger.Info("expired reset tokens purged", slog.Int64("rows_deleted", purged))
	}

	cutoff := time.Now().Add(-cm.attemptRetention)
	pruned, err := cm.attempts.DeleteOlderThan(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to prune login attempts", slog.Any("error", err))
	} else if pruned > 0 {
		cm.logger.Info("aged login attempts pruned", slog.Int64("rows_deleted", pruned))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
