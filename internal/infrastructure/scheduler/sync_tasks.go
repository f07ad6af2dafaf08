package scheduler

import (
	"context"
	"time"

	appaccounting "github.com/erp/acctsync/internal/application/accounting"
	"github.com/erp/acctsync/internal/infrastructure/config"
)

// Task names, also used by the operator API
const (
	TaskRetryFailed      = "retry_failed"
	TaskResolveConflicts = "resolve_conflicts"
	TaskPurgeOrphans     = "purge_orphans"
)

// Sweeper is the part of the sync orchestrator the scheduler drives
type Sweeper interface {
	RetryFailedSyncs(ctx context.Context) (appaccounting.SweepReport, error)
	ResolveConflicts(ctx context.Context) (appaccounting.SweepReport, error)
}

// Purger deletes orphaned records past their retention
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// SyncTasks builds the retry and conflict sweeps, plus the orphan purge when
// cleanup is enabled and a purger is given
func SyncTasks(cfg config.SyncConfig, sweeper Sweeper, purger Purger) []Task {
	tasks := []Task{
		{
			Name:     TaskRetryFailed,
			Interval: cfg.RetryInterval,
			Run:      sweepTask(sweeper.RetryFailedSyncs),
		},
		{
			Name:     TaskResolveConflicts,
			Interval: cfg.ConflictInterval,
			Run:      sweepTask(sweeper.ResolveConflicts),
		},
	}
	if cfg.CleanupEnabled && purger != nil {
		tasks = append(tasks, Task{
			Name:     TaskPurgeOrphans,
			Interval: cfg.CleanupInterval,
			Run:      purger.PurgeExpired,
		})
	}
	return tasks
}

// SweepSchedulerConfigFrom maps the sync settings onto scheduler settings
func SweepSchedulerConfigFrom(cfg config.SyncConfig) SweepSchedulerConfig {
	out := DefaultSweepSchedulerConfig()
	out.Enabled = cfg.SchedulerEnabled
	if cfg.SweepTimeout > 0 {
		out.RunTimeout = cfg.SweepTimeout
	}
	if cfg.LockTTL > 0 {
		out.LockTTL = cfg.LockTTL
	} else {
		out.LockTTL = out.RunTimeout + time.Minute
	}
	return out
}

func sweepTask(sweep func(context.Context) (appaccounting.SweepReport, error)) TaskFunc {
	return func(ctx context.Context) (int, error) {
		report, err := sweep(ctx)
		return report.Examined, err
	}
}
