package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// SyncMetrics records sync attempts, adapter latency and sweep results
type SyncMetrics struct {
	attempts       *Counter
	adapterLatency *Histogram
	sweepRecords   *Counter
}

// NewSyncMetrics creates the sync instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	attempts, err := NewCounter(meter,
		"acctsync_sync_attempts_total",
		"Sync attempts per system, entity type and outcome",
		"{attempt}",
	)
	if err != nil {
		return nil, err
	}

	latency, err := NewHistogram(meter, HistogramOpts{
		Name:        "acctsync_adapter_latency_seconds",
		Description: "Latency of calls to external accounting systems",
		Unit:        "s",
		Boundaries:  AdapterDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sweepRecords, err := NewCounter(meter,
		"acctsync_sweep_records_total",
		"Records processed by the retry and conflict sweeps by outcome",
		"{record}",
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{attempts: attempts, adapterLatency: latency, sweepRecords: sweepRecords}, nil
}

// RecordSyncAttempt counts one sync attempt
func (m *SyncMetrics) RecordSyncAttempt(ctx context.Context, systemID string, entityType accounting.EntityType, outcome string) {
	m.attempts.Inc(ctx,
		AttrSystemID.String(systemID),
		AttrEntityType.String(entityType.String()),
		AttrOutcome.String(outcome),
	)
}

// RecordAdapterLatency records the duration of one adapter call
func (m *SyncMetrics) RecordAdapterLatency(ctx context.Context, systemID, operation string, d time.Duration) {
	m.adapterLatency.RecordDuration(ctx, d,
		AttrSystemID.String(systemID),
		AttrOperation.String(operation),
	)
}

// RecordSweep adds count records with the given sweep outcome. Zero counts are dropped.
func (m *SyncMetrics) RecordSweep(ctx context.Context, sweep, outcome string, count int) {
	if count <= 0 {
		return
	}
	m.sweepRecords.Add(ctx, int64(count),
		AttrSweep.String(sweep),
		AttrOutcome.String(outcome),
	)
}
