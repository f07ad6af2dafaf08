package accounting

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/domain/shared"
)

// EntitySyncer pushes a locally stored entity to all accounting systems
type EntitySyncer interface {
	SyncEntity(ctx context.Context, entityType accounting.EntityType, entityID string) ([]SyncOutcome, error)
}

// SyncEventHandler triggers a sync when the business system records a
// payment, issues an invoice or records an expense
type SyncEventHandler struct {
	syncer EntitySyncer
	logger *zap.Logger
}

// NewSyncEventHandler creates a new handler for sync trigger events
func NewSyncEventHandler(syncer EntitySyncer, logger *zap.Logger) *SyncEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncEventHandler{syncer: syncer, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SyncEventHandler) EventTypes() []string {
	return []string{
		accounting.EventTypePaymentRecorded,
		accounting.EventTypeInvoiceIssued,
		accounting.EventTypeExpenseRecorded,
	}
}

// Handle syncs the entity named by the event. Per-system failures are stored
// as failed records for the retry sweep, so only lookup errors are returned.
func (h *SyncEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	entityType, ok := accounting.EntityTypeForEvent(event.EventType())
	if !ok {
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	outcomes, err := h.syncer.SyncEntity(ctx, entityType, event.AggregateID())
	if err != nil {
		if errors.Is(err, accounting.ErrEntityNotFound) {
			h.logger.Warn("entity from event no longer exists, skipping",
				zap.String("event_id", event.EventID().String()),
				zap.String("entity_type", entityType.String()),
				zap.String("entity_id", event.AggregateID()),
			)
			return nil
		}
		return fmt.Errorf("failed to sync %s %s: %w", entityType, event.AggregateID(), err)
	}

	counts := make(map[OutcomeStatus]int)
	for _, outcome := range outcomes {
		counts[outcome.Status]++
	}
	h.logger.Info("sync triggered by event",
		zap.String("event_type", event.EventType()),
		zap.String("entity_id", event.AggregateID()),
		zap.Int("systems", len(outcomes)),
		zap.Int("synced", counts[OutcomeSynced]),
		zap.Int("failed", counts[OutcomeFailed]+counts[OutcomeError]),
	)
	return nil
}
