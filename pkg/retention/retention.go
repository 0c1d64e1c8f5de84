// Package retention runs the advisory cache prune on a cron schedule.
// Pruning is housekeeping, not correctness-critical: a failed run leaves
// extra history behind and nothing else.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/garvnn/meetup/pkg/config"
	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/store"
)

// RunOnce prunes every cached conversation down to the configured age.
// In dry-run mode it only counts what would be removed.
func RunOnce(cfg config.RetentionConfig) (int, error) {
	convs, err := store.ListConversations()
	if err != nil {
		return 0, fmt.Errorf("list conversations: %w", err)
	}
	total := 0
	for _, id := range convs {
		if cfg.DryRun {
			cutoff := time.Now().UTC().Add(-time.Duration(cfg.Days) * 24 * time.Hour).UnixMilli()
			for _, m := range store.LoadMessages(id) {
				if m.TS < cutoff {
					total++
				}
			}
			continue
		}
		n, err := store.PruneOlderThan(id, cfg.Days)
		if err != nil {
			logger.Error("retention_prune_failed", "meetup", id, "error", err)
			continue
		}
		total += n
	}
	logger.Info("retention_run_complete", "pruned", total, "dry_run", cfg.DryRun)
	return total, nil
}

// Start launches the retention scheduler if enabled and returns a cancel
// func. The cron expression is validated with gronx before the scheduler
// goroutine starts.
func Start(ctx context.Context, cfg config.RetentionConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}
	logger.Info("retention_enabled", "cron", cronExpr, "days", cfg.Days)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cfg, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression and sleeps
// until it, then triggers a run.
func runScheduler(ctx context.Context, cfg config.RetentionConfig, cronExpr string) {
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
			if _, err := RunOnce(cfg); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}
