package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Purger deletes expired rows and reports how many were removed
type Purger interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes expired sessions and OAuth states
type CleanupManager struct {
	targets  map[string]Purger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. targets maps a name used
// in log lines to the store to purge.
func NewCleanupManager(targets map[string]Purger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		targets:  targets,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the periodic cleanup until Stop is called or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce purges every target once. A failing target does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, target := range cm.targets {
		rowsDeleted, err := target.CleanupExpired(cleanupCtx)
		if err != nil {
			cm.logger.Error("failed to cleanup expired rows", slog.String("target", name), slog.Any("error", err))
			continue
		}
		if rowsDeleted > 0 {
			cm.logger.Info("expired rows cleaned up", slog.String("target", name), slog.Int64("rows_deleted", rowsDeleted))
		}
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
