package accounting

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/domain/shared"
)

type MockEntitySyncer struct {
	mock.Mock
}

func (m *MockEntitySyncer) SyncEntity(ctx context.Context, entityType accounting.EntityType, entityID string) ([]SyncOutcome, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SyncOutcome), args.Error(1)
}

func TestSyncEventHandler_EventTypes(t *testing.T) {
	handler := NewSyncEventHandler(new(MockEntitySyncer), nil)
	assert.ElementsMatch(t, []string{"PaymentRecorded", "InvoiceIssued", "ExpenseRecorded"}, handler.EventTypes())
}

func TestSyncEventHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		event      shared.DomainEvent
		entityType accounting.EntityType
		entityID   string
	}{
		{"payment recorded", accounting.NewPaymentRecordedEvent("pay-1"), accounting.EntityTypePayment, "pay-1"},
		{"invoice issued", accounting.NewInvoiceIssuedEvent("inv-1"), accounting.EntityTypeInvoice, "inv-1"},
		{"expense recorded", accounting.NewExpenseRecordedEvent("exp-1"), accounting.EntityTypeExpense, "exp-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := new(MockEntitySyncer)
			syncer.On("SyncEntity", mock.Anything, tt.entityType, tt.entityID).Return([]SyncOutcome{
				{SystemID: "books", Status: OutcomeSynced},
				{SystemID: "omie", Status: OutcomeFailed, Error: "HTTP 503"},
			}, nil)

			handler := NewSyncEventHandler(syncer, zap.NewNop())
			require.NoError(t, handler.Handle(context.Background(), tt.event))
			syncer.AssertExpectations(t)
		})
	}
}

func TestSyncEventHandler_Handle_UnknownEvent(t *testing.T) {
	syncer := new(MockEntitySyncer)
	handler := NewSyncEventHandler(syncer, zap.NewNop())

	event := shared.NewBaseDomainEvent("ClientCreated", "client", "c-1")
	err := handler.Handle(context.Background(), &event)

	assert.ErrorContains(t, err, "unexpected event type: ClientCreated")
	syncer.AssertNotCalled(t, "SyncEntity", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncEventHandler_Handle_EntityGone(t *testing.T) {
	syncer := new(MockEntitySyncer)
	syncer.On("SyncEntity", mock.Anything, accounting.EntityTypePayment, "pay-9").
		Return(nil, accounting.ErrEntityNotFound)

	handler := NewSyncEventHandler(syncer, zap.NewNop())
	assert.NoError(t, handler.Handle(context.Background(), accounting.NewPaymentRecordedEvent("pay-9")))
}

func TestSyncEventHandler_Handle_LookupError(t *testing.T) {
	lookupErr := errors.New("connection refused")
	syncer := new(MockEntitySyncer)
	syncer.On("SyncEntity", mock.Anything, accounting.EntityTypeInvoice, "inv-9").Return(nil, lookupErr)

	handler := NewSyncEventHandler(syncer, zap.NewNop())
	err := handler.Handle(context.Background(), accounting.NewInvoiceIssuedEvent("inv-9"))

	assert.ErrorIs(t, err, lookupErr)
	assert.ErrorContains(t, err, "failed to sync invoice inv-9")
}
