package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l, _ := observedLogger()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestSyncScope_Fields(t *testing.T) {
	scope := SyncScope{SystemID: "omie", EntityID: "pay-1"}
	fields := scope.Fields()

	assert.Len(t, fields, 2)
	assert.Equal(t, "system_id", fields[0].Key)
	assert.Equal(t, "entity_id", fields[1].Key)
}

func TestContextLogger_InjectsContextFields(t *testing.T) {
	l, logs := observedLogger()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)
	ctx, _ = WithRequestID(ctx, l, "req-1")
	ctx = WithSyncScope(ctx, SyncScope{SystemID: "books", EntityType: "payment", EntityID: "pay-1"})

	WithLogger(ctx, l).Info("sync finished")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "books", fields["system_id"])
	assert.Equal(t, "payment", fields["entity_type"])
	assert.Equal(t, "pay-1", fields["entity_id"])

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
	assert.Equal(t, "00f067aa0ba902b7", GetSpanID(ctx))
}

func TestContextLogger_WithoutSpan(t *testing.T) {
	l, logs := observedLogger()

	L(WithContext(context.Background(), l)).With(zap.Int("count", 3)).Warn("sweep slow")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.Equal(t, int64(3), fields["count"])
	assert.Empty(t, GetTraceID(context.Background()))
}
