package accounting

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/acctsync/internal/domain/shared"
)

// Event types published by the primary business system that trigger a sync
const (
	EventTypePaymentRecorded = "PaymentRecorded"
	EventTypeInvoiceIssued   = "InvoiceIssued"
	EventTypeExpenseRecorded = "ExpenseRecorded"
)

// SyncTriggerEvent is published when a payment, invoice or expense is created
// or changed locally
type SyncTriggerEvent struct {
	shared.BaseDomainEvent
}

// NewPaymentRecordedEvent creates an event for a recorded payment
func NewPaymentRecordedEvent(paymentID string) *SyncTriggerEvent {
	return &SyncTriggerEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, EntityTypePayment.String(), paymentID),
	}
}

// NewInvoiceIssuedEvent creates an event for an issued invoice
func NewInvoiceIssuedEvent(invoiceID string) *SyncTriggerEvent {
	return &SyncTriggerEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, EntityTypeInvoice.String(), invoiceID),
	}
}

// NewExpenseRecordedEvent creates an event for a recorded expense
func NewExpenseRecordedEvent(expenseID string) *SyncTriggerEvent {
	return &SyncTriggerEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeExpenseRecorded, EntityTypeExpense.String(), expenseID),
	}
}

// EntityTypeForEvent maps a trigger event type to the entity it concerns
func EntityTypeForEvent(eventType string) (EntityType, bool) {
	switch eventType {
	case EventTypePaymentRecorded:
		return EntityTypePayment, true
	case EventTypeInvoiceIssued:
		return EntityTypeInvoice, true
	case EventTypeExpenseRecorded:
		return EntityTypeExpense, true
	default:
		return "", false
	}
}

// RecordedSyncTrigger rebuilds a trigger event delivered by the business
// system, keeping its event id so redeliveries are recognized. A zero
// occurredAt means now.
func RecordedSyncTrigger(eventID uuid.UUID, eventType, entityID string, occurredAt time.Time) (*SyncTriggerEvent, error) {
	entityType, ok := EntityTypeForEvent(eventType)
	if !ok {
		return nil, ErrUnsupportedEntity
	}
	var missing []string
	if eventID == uuid.Nil {
		missing = append(missing, "event_id")
	}
	if entityID == "" {
		missing = append(missing, "entity_id")
	}
	if len(missing) > 0 {
		return nil, NewValidationError(missing...)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &SyncTriggerEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        eventID,
			Type:      eventType,
			Timestamp: occurredAt,
			AggID:     entityID,
			AggType:   entityType.String(),
		},
	}, nil
}
