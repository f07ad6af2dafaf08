package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/shared"
)

// IdempotencyStats is a snapshot of the handler counters
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler drops redelivered events before they reach the wrapped
// handler. Keys are event ids and stay recorded for the configured TTL once
// the wrapped handler succeeds; a failure releases the key so the event can
// be delivered again.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default 24h TTL configuration
func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = cfg
	}
}

// NewIdempotentHandler wraps handler with duplicate suppression
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle marks the event id and forwards first deliveries only. When the
// store is unreachable the event is processed anyway; a second sync of the
// same entity is absorbed by the sync record.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.forward(ctx, evt)
	}

	key := evt.EventID().String()
	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("Idempotency check failed, processing anyway",
			zap.String("event_id", key),
			zap.String("event_type", evt.EventType()),
			zap.Error(err),
		)
		return h.forward(ctx, evt)
	case !fresh:
		h.duplicate.Add(1)
		h.logger.Debug("Duplicate event skipped",
			zap.String("event_id", key),
			zap.String("event_type", evt.EventType()),
		)
		return nil
	}

	if err := h.forward(ctx, evt); err != nil {
		if uerr := h.store.Unmark(context.WithoutCancel(ctx), key); uerr != nil {
			h.logger.Error("Failed to release event id after handler failure",
				zap.String("event_id", key),
				zap.String("event_type", evt.EventType()),
				zap.Error(uerr),
			)
		}
		return err
	}
	return nil
}

func (h *IdempotentHandler) forward(ctx context.Context, evt shared.DomainEvent) error {
	if err := h.handler.Handle(ctx, evt); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the current counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
