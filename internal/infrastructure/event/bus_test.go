package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/domain/shared"
)

type recordingHandler struct {
	types []string
	err   error
	panic bool

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, evt)
	h.mu.Unlock()
	if h.panic {
		panic("boom")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	payments := newRecordingHandler(accounting.EventTypePaymentRecorded)
	invoices := newRecordingHandler(accounting.EventTypeInvoiceIssued)
	bus.Subscribe(payments)
	bus.Subscribe(invoices)

	err := bus.Publish(context.Background(),
		accounting.NewPaymentRecordedEvent("pay-1"),
		accounting.NewPaymentRecordedEvent("pay-2"),
		accounting.NewInvoiceIssuedEvent("inv-1"),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, payments.count())
	assert.Equal(t, 1, invoices.count())
	assert.Equal(t, "inv-1", invoices.handled[0].AggregateID())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler(accounting.EventTypePaymentRecorded)
	bus.Subscribe(h, accounting.EventTypeExpenseRecorded)

	require.NoError(t, bus.Publish(context.Background(), accounting.NewPaymentRecordedEvent("pay-1")))
	assert.Equal(t, 0, h.count())

	require.NoError(t, bus.Publish(context.Background(), accounting.NewExpenseRecordedEvent("exp-1")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_FailuresAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler(accounting.EventTypeInvoiceIssued)
	failing.err = errors.New("store down")
	panicking := newRecordingHandler(accounting.EventTypeInvoiceIssued)
	panicking.panic = true
	healthy := newRecordingHandler(accounting.EventTypeInvoiceIssued)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), accounting.NewInvoiceIssuedEvent("inv-1"))
	assert.ErrorIs(t, err, ErrHandlerFailed)
	assert.ErrorContains(t, err, "store down")
	assert.ErrorContains(t, err, "handler panicked")

	assert.Equal(t, 1, healthy.count())
	require.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
	assert.Contains(t, logs.All()[1].ContextMap()["error"], "handler panicked")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler(accounting.EventTypePaymentRecorded)
	bus.Subscribe(h)

	_ = bus.Publish(context.Background(), accounting.NewPaymentRecordedEvent("pay-1"))
	bus.Unsubscribe(h)
	_ = bus.Publish(context.Background(), accounting.NewPaymentRecordedEvent("pay-2"))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_Stop(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))

	err := bus.Publish(context.Background(), accounting.NewPaymentRecordedEvent("pay-1"))
	assert.ErrorIs(t, err, ErrBusStopped)

	require.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Publish(context.Background(), accounting.NewPaymentRecordedEvent("pay-1")))
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newRecordingHandler()
	all := newRecordingHandler()

	r.Register(typed, "a", "b")
	r.Register(typed, "a")
	r.Register(all)

	assert.Len(t, r.Handlers("a"), 2)
	assert.Equal(t, []shared.EventHandler{all}, r.Handlers("c"))
	assert.ElementsMatch(t, []string{"a", "b"}, r.EventTypes())

	r.Unregister(typed)
	assert.Empty(t, r.EventTypes())
	assert.Equal(t, []shared.EventHandler{all}, r.Handlers("a"))
}
