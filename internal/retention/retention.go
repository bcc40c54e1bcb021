// Package retention ages out stale cached conversations on a cron
// schedule, mirroring the auto-delete policy applied server-side.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"tpchat/pkg/config"
	"tpchat/pkg/logger"
	"tpchat/pkg/store"
)

// RunOnce performs a single sweep with the configured max age.
func RunOnce(cfg *config.Config) (int, error) {
	days := cfg.Conversations.AutoDeleteAfterDays
	if days <= 0 {
		return 0, nil
	}
	maxAge := time.Duration(days) * 24 * time.Hour
	return store.CleanupOldConversations(maxAge)
}

// Start launches the retention scheduler when enabled. Returns a cancel
// func; a disabled config yields a no-op cancel.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Retention.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Retention.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cronExpr)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "max_age_days", cfg.Conversations.AutoDeleteAfterDays)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler sleeps until the next cron tick and sweeps. gronx computes
// the tick, which keeps full cron syntax available.
func runScheduler(ctx context.Context, cfg *config.Config, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if removed, err := RunOnce(cfg); err != nil {
				logger.Error("retention_run_error", "error", err)
			} else if removed > 0 {
				logger.Info("retention_run_complete", "removed", removed)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}
