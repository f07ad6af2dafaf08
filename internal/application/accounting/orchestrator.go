package accounting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/telemetry"
)

// AdapterBuilder builds the adapter of one registered system
type AdapterBuilder interface {
	Build(sys *accounting.AccountingSystemConfig) (accounting.Adapter, error)
}

// OrchestratorConfig tunes retries, sweeps and adapter calls
type OrchestratorConfig struct {
	RetryPolicy accounting.RetryPolicy
	// SweepBatchSize caps the records examined per sweep
	SweepBatchSize int
	// AdapterTimeout bounds every adapter call on top of the provider timeout
	AdapterTimeout time.Duration
}

// DefaultOrchestratorConfig returns 5 retries from a 1 minute base delay,
// batches of 100 and 30 second adapter calls
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		RetryPolicy:    accounting.DefaultRetryPolicy(),
		SweepBatchSize: 100,
		AdapterTimeout: 30 * time.Second,
	}
}

func (c *OrchestratorConfig) applyDefaults() {
	def := DefaultOrchestratorConfig()
	if c.RetryPolicy.MaxRetries <= 0 {
		c.RetryPolicy.MaxRetries = def.RetryPolicy.MaxRetries
	}
	if c.RetryPolicy.BaseDelay <= 0 {
		c.RetryPolicy.BaseDelay = def.RetryPolicy.BaseDelay
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = def.SweepBatchSize
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = def.AdapterTimeout
	}
}

// SyncOrchestrator dispatches payments, invoices and expenses to every
// registered accounting system and owns the lifecycle of sync records
type SyncOrchestrator struct {
	configs  accounting.SystemConfigRepository
	records  accounting.SyncRecordRepository
	entities accounting.EntityReader
	writer   accounting.LocalWriter
	builder  AdapterBuilder
	registry *AdapterRegistry
	metrics  MetricsRecorder
	config   OrchestratorConfig
	logger   *zap.Logger
	now      func() time.Time
}

// OrchestratorOption configures optional collaborators
type OrchestratorOption func(*SyncOrchestrator)

// WithLocalWriter sets the collaborator that applies external data locally
func WithLocalWriter(writer accounting.LocalWriter) OrchestratorOption {
	return func(o *SyncOrchestrator) { o.writer = writer }
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics MetricsRecorder) OrchestratorOption {
	return func(o *SyncOrchestrator) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *SyncOrchestrator) { o.now = now }
}

// NewSyncOrchestrator creates a new orchestrator. Call Initialize before use.
func NewSyncOrchestrator(
	configs accounting.SystemConfigRepository,
	records accounting.SyncRecordRepository,
	entities accounting.EntityReader,
	builder AdapterBuilder,
	config OrchestratorConfig,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *SyncOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.applyDefaults()

	o := &SyncOrchestrator{
		configs:  configs,
		records:  records,
		entities: entities,
		builder:  builder,
		registry: NewAdapterRegistry(),
		metrics:  noopMetrics{},
		config:   config,
		logger:   logger.Named("sync_orchestrator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry exposes the adapter registry
func (o *SyncOrchestrator) Registry() *AdapterRegistry {
	return o.registry
}

// ---------------------------------------------------------------------------
// Initialization
// ---------------------------------------------------------------------------

// Initialize loads the active accounting systems and builds their adapters.
// Systems with an unknown provider or missing credentials are skipped.
func (o *SyncOrchestrator) Initialize(ctx context.Context) error {
	configs, err := o.configs.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("accounting: load active systems: %w", err)
	}

	systems := make(map[string]RegisteredSystem, len(configs))
	for i := range configs {
		cfg := configs[i]
		adapter, err := o.builder.Build(&cfg)
		if err != nil {
			o.logger.Warn("Skipping accounting system",
				zap.String("system_id", cfg.ID),
				zap.String("provider_type", cfg.ProviderType.String()),
				zap.Error(err),
			)
			continue
		}
		systems[cfg.ID] = RegisteredSystem{Config: cfg, Adapter: adapter}
	}

	o.registry.Replace(systems)
	o.logger.Info("Accounting systems initialized",
		zap.Int("active", len(configs)),
		zap.Int("registered", len(systems)),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Primary sync operations
// ---------------------------------------------------------------------------

// SyncPayment pushes a payment to every registered system
func (o *SyncOrchestrator) SyncPayment(ctx context.Context, payment *accounting.Payment) []SyncOutcome {
	return o.syncEntity(ctx, payment)
}

// SyncInvoice pushes an invoice to every registered system
func (o *SyncOrchestrator) SyncInvoice(ctx context.Context, invoice *accounting.Invoice) []SyncOutcome {
	return o.syncEntity(ctx, invoice)
}

// SyncExpense pushes an expense to every registered system
func (o *SyncOrchestrator) SyncExpense(ctx context.Context, expense *accounting.Expense) []SyncOutcome {
	return o.syncEntity(ctx, expense)
}

// SyncEntity loads an entity by id and pushes it to every registered system
func (o *SyncOrchestrator) SyncEntity(ctx context.Context, entityType accounting.EntityType, entityID string) ([]SyncOutcome, error) {
	entity, err := o.loadEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return o.syncEntity(ctx, entity), nil
}

// syncEntity fans out to all systems concurrently. Each system writes its own
// record so the calls are independent.
func (o *SyncOrchestrator) syncEntity(ctx context.Context, entity accounting.Entity) []SyncOutcome {
	systems := o.registry.Snapshot()
	outcomes := make([]SyncOutcome, len(systems))

	var wg sync.WaitGroup
	for i, sys := range systems {
		wg.Add(1)
		go func(i int, sys RegisteredSystem) {
			defer wg.Done()
			outcomes[i] = o.syncToSystem(ctx, sys, entity)
		}(i, sys)
	}
	wg.Wait()

	return outcomes
}

func (o *SyncOrchestrator) syncToSystem(ctx context.Context, sys RegisteredSystem, entity accounting.Entity) SyncOutcome {
	logger := o.logger.With(
		zap.String("system_id", sys.Config.ID),
		zap.String("entity_type", entity.EntityType().String()),
		zap.String("entity_id", entity.EntityID()),
	)
	outcome := SyncOutcome{SystemID: sys.Config.ID}

	ctx, span := telemetry.StartServiceSpan(ctx, "accounting_sync", "sync_"+entity.EntityType().String(),
		telemetry.WithAttribute(telemetry.SpanAttrSystemID, sys.Config.ID),
		telemetry.WithAttribute(telemetry.SpanAttrEntityID, entity.EntityID()),
	)
	defer span.End()

	record, err := o.records.FindByIdentity(ctx, entity.EntityType(), entity.EntityID(), sys.Config.ID)
	switch {
	case errors.Is(err, accounting.ErrSyncRecordNotFound):
		record, err = accounting.NewSyncRecord(entity.EntityType(), entity.EntityID(), sys.Config.ID)
		if err != nil {
			outcome.Status = OutcomeError
			outcome.Error = err.Error()
			return outcome
		}
	case err != nil:
		logger.Error("Failed to load sync record", zap.Error(err))
		telemetry.RecordError(span, err)
		outcome.Status = OutcomeError
		outcome.Error = err.Error()
		o.metrics.RecordSyncAttempt(ctx, sys.Config.ID, entity.EntityType(), string(OutcomeError))
		return outcome
	}

	if record.IsSynced() {
		logger.Debug("Entity already synced, skipping", zap.String("external_id", record.ExternalID))
		outcome.Status = OutcomeSkipped
		outcome.Record = record
		o.metrics.RecordSyncAttempt(ctx, sys.Config.ID, entity.EntityType(), string(OutcomeSkipped))
		return outcome
	}

	result := o.push(ctx, sys, entity)
	record.ApplyResult(result, o.config.RetryPolicy, o.now())
	outcome.Record = record
	outcome.Status = statusOutcome(record.Status)
	outcome.Error = record.ErrorMessage

	if err := o.records.Upsert(ctx, record); err != nil {
		logger.Error("Failed to save sync record", zap.Error(err))
		telemetry.RecordError(span, err)
		outcome.Status = OutcomeError
		outcome.Error = err.Error()
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, record.Status.String(),
		telemetry.SpanAttrExternalID, record.ExternalID,
	)
	if outcome.Status == OutcomeFailed {
		telemetry.MarkFailed(span, record.ErrorMessage)
		logger.Warn("Sync failed",
			zap.String("error", record.ErrorMessage),
			zap.Bool("retryable", result.Retryable),
		)
	} else {
		logger.Info("Sync finished",
			zap.String("status", record.Status.String()),
			zap.String("external_id", record.ExternalID),
		)
	}
	o.metrics.RecordSyncAttempt(ctx, sys.Config.ID, entity.EntityType(), string(outcome.Status))
	return outcome
}

// ---------------------------------------------------------------------------
// Sweeps
// ---------------------------------------------------------------------------

// RetryFailedSyncs replays failed records whose backoff has elapsed. Errors on
// one record never stop the sweep. Orphaned records are skipped, not deleted.
func (o *SyncOrchestrator) RetryFailedSyncs(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := o.now()

	ctx, span := telemetry.StartServiceSpan(ctx, "accounting_sync", "retry_failed")
	defer span.End()

	records, err := o.records.FindRetryable(ctx, now, o.config.RetryPolicy.MaxRetries, o.config.SweepBatchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("accounting: load retryable records: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(records))

	o.logger.Info("Retrying failed syncs", zap.Int("count", len(records)))

	for i := range records {
		if err := ctx.Err(); err != nil {
			o.recordSweep(ctx, SweepRetry, report)
			return report, err
		}
		record := &records[i]
		report.Examined++

		logger := o.recordLogger(record)
		sys, ok := o.registry.Get(record.SystemID)
		if !ok {
			logger.Warn("No adapter registered for system, skipping retry")
			report.Skipped++
			continue
		}

		entity, err := o.loadEntity(ctx, record.EntityType, record.EntityID)
		if err != nil {
			if errors.Is(err, accounting.ErrEntityNotFound) {
				logger.Warn("Entity no longer exists, skipping retry")
				report.Orphaned++
			} else {
				logger.Error("Failed to load entity for retry", zap.Error(err))
				report.Errors++
			}
			continue
		}

		result := o.push(ctx, sys, entity)
		record.ApplyRetryResult(result, o.config.RetryPolicy, o.now())

		if err := o.records.Upsert(ctx, record); err != nil {
			logger.Error("Failed to save retried sync record", zap.Error(err))
			report.Errors++
			continue
		}

		switch record.Status {
		case accounting.SyncStatusSuccess:
			report.Succeeded++
		case accounting.SyncStatusConflict:
			report.Conflicts++
		default:
			report.Failed++
		}
		logger.Info("Retry finished",
			zap.String("status", record.Status.String()),
			zap.Int("retry_count", record.RetryCount),
		)
	}

	o.recordSweep(ctx, SweepRetry, report)
	return report, nil
}

// ResolveConflicts compares every conflicting record with its external copy
// and applies the adapter's resolution. Manual resolutions leave the record
// untouched.
func (o *SyncOrchestrator) ResolveConflicts(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	ctx, span := telemetry.StartServiceSpan(ctx, "accounting_sync", "resolve_conflicts")
	defer span.End()

	records, err := o.records.FindByStatus(ctx, accounting.SyncStatusConflict, o.config.SweepBatchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("accounting: load conflicts: %w", err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, len(records))

	o.logger.Info("Resolving conflicts", zap.Int("count", len(records)))

	for i := range records {
		if err := ctx.Err(); err != nil {
			o.recordSweep(ctx, SweepConflict, report)
			return report, err
		}
		record := &records[i]
		report.Examined++

		if err := o.resolveConflict(ctx, record, &report); err != nil {
			o.recordLogger(record).Error("Failed to resolve conflict", zap.Error(err))
			report.Errors++
		}
	}

	o.recordSweep(ctx, SweepConflict, report)
	return report, nil
}

func (o *SyncOrchestrator) resolveConflict(ctx context.Context, record *accounting.SyncRecord, report *SweepReport) error {
	logger := o.recordLogger(record)

	sys, ok := o.registry.Get(record.SystemID)
	if !ok {
		logger.Warn("No adapter registered for system, skipping conflict")
		report.Skipped++
		return nil
	}

	entity, err := o.loadEntity(ctx, record.EntityType, record.EntityID)
	if err != nil {
		if errors.Is(err, accounting.ErrEntityNotFound) {
			logger.Warn("Entity no longer exists, skipping conflict")
			report.Orphaned++
			return nil
		}
		return err
	}

	external, err := o.fetchExternal(ctx, sys, record)
	if err != nil {
		return err
	}

	conflict := accounting.NewDataConflict(record, entity.Snapshot(), external)
	if !conflict.HasDifferences() {
		logger.Info("External copy matches local data, closing conflict")
		return o.closeConflict(ctx, record, report)
	}

	resolution := o.decide(ctx, sys, conflict)
	logger.Info("Conflict resolution decided",
		zap.String("action", resolution.Action.String()),
		zap.Strings("conflict_fields", conflict.ConflictFields),
		zap.String("notes", resolution.Notes),
	)

	switch resolution.Action {
	case accounting.ResolutionUseLocal:
		if err := o.update(ctx, sys, entity, record.ExternalID); err != nil {
			return fmt.Errorf("update external record: %w", err)
		}
	case accounting.ResolutionUseExternal:
		if o.writer == nil {
			return errors.New("no local writer configured for external resolutions")
		}
		if err := o.writer.ApplyExternalData(ctx, record.EntityType, record.EntityID, resolution.ResolvedData); err != nil {
			return fmt.Errorf("apply external data: %w", err)
		}
	default:
		report.Manual++
		return nil
	}

	return o.closeConflict(ctx, record, report)
}

func (o *SyncOrchestrator) closeConflict(ctx context.Context, record *accounting.SyncRecord, report *SweepReport) error {
	if err := record.ResolveConflict(o.now()); err != nil {
		return err
	}
	if err := o.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("save resolved record: %w", err)
	}
	report.Succeeded++
	return nil
}

// ---------------------------------------------------------------------------
// Connections and operator actions
// ---------------------------------------------------------------------------

// TestAllConnections checks every registered system concurrently. A failing
// or panicking adapter only marks its own system as unreachable.
func (o *SyncOrchestrator) TestAllConnections(ctx context.Context) map[string]bool {
	systems := o.registry.Snapshot()
	results := make(map[string]bool, len(systems))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sys := range systems {
		wg.Add(1)
		go func(sys RegisteredSystem) {
			defer wg.Done()
			ok := o.testConnection(ctx, sys)
			mu.Lock()
			results[sys.Config.ID] = ok
			mu.Unlock()
		}(sys)
	}
	wg.Wait()

	return results
}

func (o *SyncOrchestrator) testConnection(ctx context.Context, sys RegisteredSystem) (ok bool) {
	ctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Adapter panicked during connection test",
				zap.String("system_id", sys.Config.ID),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()

	start := time.Now()
	ok = sys.Adapter.TestConnection(ctx)
	o.metrics.RecordAdapterLatency(ctx, sys.Config.ID, "test_connection", time.Since(start))
	return ok
}

// MarkConflict moves a record to conflict on behalf of an operator or an
// adapter that noticed a divergent external copy
func (o *SyncOrchestrator) MarkConflict(ctx context.Context, entityType accounting.EntityType, entityID, systemID, externalID, reason string) (*accounting.SyncRecord, error) {
	record, err := o.records.FindByIdentity(ctx, entityType, entityID, systemID)
	if errors.Is(err, accounting.ErrSyncRecordNotFound) {
		record, err = accounting.NewSyncRecord(entityType, entityID, systemID)
	}
	if err != nil {
		return nil, err
	}

	if err := record.MarkConflict(externalID, reason, o.now()); err != nil {
		return nil, err
	}
	if err := o.records.Upsert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecord returns one sync record
func (o *SyncOrchestrator) GetRecord(ctx context.Context, id uuid.UUID) (*accounting.SyncRecord, error) {
	return o.records.FindByID(ctx, id)
}

// ListRecords returns a page of sync records and the total matching count
func (o *SyncOrchestrator) ListRecords(ctx context.Context, filter accounting.SyncRecordFilter) ([]accounting.SyncRecord, int64, error) {
	records, err := o.records.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := o.records.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// CountByStatus counts the records matching filter per sync status. The
// filter's own Status is ignored.
func (o *SyncOrchestrator) CountByStatus(ctx context.Context, filter accounting.SyncRecordFilter) (map[accounting.SyncStatus]int64, error) {
	counts := make(map[accounting.SyncStatus]int64, 4)
	for _, status := range []accounting.SyncStatus{
		accounting.SyncStatusPending,
		accounting.SyncStatusSuccess,
		accounting.SyncStatusFailed,
		accounting.SyncStatusConflict,
	} {
		f := filter
		f.Status = status
		n, err := o.records.Count(ctx, f)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// push invokes the adapter sync call matching the entity. Panics become
// failed results carrying the panic message.
func (o *SyncOrchestrator) push(ctx context.Context, sys RegisteredSystem, entity accounting.Entity) (result *accounting.SyncResult) {
	ctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Adapter panicked",
				zap.String("system_id", sys.Config.ID),
				zap.String("entity_id", entity.EntityID()),
				zap.Any("panic", r),
			)
			result = accounting.NewFailureResult(fmt.Errorf("adapter panic: %v", r))
		}
		o.metrics.RecordAdapterLatency(ctx, sys.Config.ID, "sync_"+entity.EntityType().String(), time.Since(start))
	}()

	switch e := entity.(type) {
	case *accounting.Payment:
		result = sys.Adapter.SyncPayment(ctx, e)
	case *accounting.Invoice:
		result = sys.Adapter.SyncInvoice(ctx, e)
	case *accounting.Expense:
		result = sys.Adapter.SyncExpense(ctx, e)
	default:
		result = accounting.NewFailureResult(fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entity.EntityType()))
	}
	if result == nil {
		result = accounting.NewFailureResult(fmt.Errorf("%w: adapter returned no result", accounting.ErrInvalidResponse))
	}
	return result
}

// update overwrites the external record in place; the record keeps its
// external id whatever the outcome
func (o *SyncOrchestrator) update(ctx context.Context, sys RegisteredSystem, entity accounting.Entity, externalID string) (err error) {
	if externalID == "" {
		return fmt.Errorf("%w: conflict record has no external id", accounting.ErrInvalidSyncRecord)
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
		o.metrics.RecordAdapterLatency(ctx, sys.Config.ID, "update_"+entity.EntityType().String(), time.Since(start))
	}()

	return sys.Adapter.UpdateExternal(ctx, entity, externalID)
}

func (o *SyncOrchestrator) fetchExternal(ctx context.Context, sys RegisteredSystem, record *accounting.SyncRecord) (data map[string]any, err error) {
	if record.ExternalID == "" {
		return nil, fmt.Errorf("%w: conflict record has no external id", accounting.ErrInvalidSyncRecord)
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()

	start := time.Now()
	data, err = sys.Adapter.GetExternalData(ctx, record.EntityType, record.ExternalID)
	o.metrics.RecordAdapterLatency(ctx, sys.Config.ID, "get_external_data", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch external data: %w", err)
	}
	return data, nil
}

func (o *SyncOrchestrator) decide(ctx context.Context, sys RegisteredSystem, conflict *accounting.DataConflict) (resolution *accounting.Resolution) {
	defer func() {
		if r := recover(); r != nil {
			resolution = &accounting.Resolution{Action: accounting.ResolutionManual, Notes: fmt.Sprintf("adapter panic: %v", r)}
		}
	}()

	resolution = sys.Adapter.HandleConflict(ctx, conflict)
	if resolution == nil {
		resolution = &accounting.Resolution{Action: accounting.ResolutionManual, Notes: "adapter returned no resolution"}
	}
	return resolution
}

func (o *SyncOrchestrator) loadEntity(ctx context.Context, entityType accounting.EntityType, entityID string) (accounting.Entity, error) {
	return loadEntity(ctx, o.entities, entityType, entityID)
}

// loadEntity returns accounting.ErrEntityNotFound when the reader has nothing
func loadEntity(ctx context.Context, reader accounting.EntityReader, entityType accounting.EntityType, entityID string) (accounting.Entity, error) {
	notFound := fmt.Errorf("%w: %s %s", accounting.ErrEntityNotFound, entityType, entityID)

	switch entityType {
	case accounting.EntityTypePayment:
		payment, err := reader.GetPayment(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, notFound
		}
		return payment, nil
	case accounting.EntityTypeInvoice:
		invoice, err := reader.GetInvoice(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if invoice == nil {
			return nil, notFound
		}
		return invoice, nil
	case accounting.EntityTypeExpense:
		expense, err := reader.GetExpense(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if expense == nil {
			return nil, notFound
		}
		return expense, nil
	default:
		return nil, fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entityType)
	}
}

func (o *SyncOrchestrator) recordLogger(record *accounting.SyncRecord) *zap.Logger {
	return o.logger.With(
		zap.String("system_id", record.SystemID),
		zap.String("entity_type", record.EntityType.String()),
		zap.String("entity_id", record.EntityID),
	)
}

func (o *SyncOrchestrator) recordSweep(ctx context.Context, sweep string, report SweepReport) {
	o.metrics.RecordSweep(ctx, sweep, "succeeded", report.Succeeded)
	o.metrics.RecordSweep(ctx, sweep, "failed", report.Failed)
	o.metrics.RecordSweep(ctx, sweep, "conflict", report.Conflicts)
	o.metrics.RecordSweep(ctx, sweep, "manual", report.Manual)
	o.metrics.RecordSweep(ctx, sweep, "skipped", report.Skipped)
	o.metrics.RecordSweep(ctx, sweep, "orphaned", report.Orphaned)
	o.metrics.RecordSweep(ctx, sweep, "error", report.Errors)
	o.logger.Info("Sweep finished",
		zap.String("sweep", sweep),
		zap.Int("examined", report.Examined),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("errors", report.Errors),
	)
}

func statusOutcome(status accounting.SyncStatus) OutcomeStatus {
	switch status {
	case accounting.SyncStatusSuccess:
		return OutcomeSynced
	case accounting.SyncStatusConflict:
		return OutcomeConflict
	default:
		return OutcomeFailed
	}
}
