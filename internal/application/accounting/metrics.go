package accounting

import (
	"context"
	"time"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// Sweep names used in metrics and logs
const (
	SweepRetry    = "retry"
	SweepConflict = "conflict"
)

// MetricsRecorder receives sync measurements. Outcomes are OutcomeStatus
// values; telemetry.SyncMetrics is the OpenTelemetry implementation.
type MetricsRecorder interface {
	RecordSyncAttempt(ctx context.Context, systemID string, entityType accounting.EntityType, outcome string)
	RecordAdapterLatency(ctx context.Context, systemID, operation string, d time.Duration)
	RecordSweep(ctx context.Context, sweep, outcome string, count int)
}

type noopMetrics struct{}

func (noopMetrics) RecordSyncAttempt(context.Context, string, accounting.EntityType, string) {}
func (noopMetrics) RecordAdapterLatency(context.Context, string, string, time.Duration) {}
func (noopMetrics) RecordSweep(context.Context, string, string, int) {}
