package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/erp/acctsync/internal/infrastructure/telemetry"
)

// setupTestTracer installs a tracer provider backed by an in-memory recorder
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "accounting_sync", "sync_payment",
		telemetry.WithAttribute(telemetry.SpanAttrSystemID, "omie"),
		telemetry.WithAttribute(telemetry.SpanAttrCount, 3),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "accounting_sync.sync_payment", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	system, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrSystemID)
	require.True(t, ok)
	assert.Equal(t, "omie", system.AsString())

	count, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrCount)
	require.True(t, ok)
	assert.Equal(t, int64(3), count.AsInt64())
}

func TestSetAttributes_SkipsNonStringKeys(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.attrs")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, "failed",
		42, "ignored",
		"dangling",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	assert.Len(t, attrs, 1)
	status, ok := attrValue(attrs, telemetry.SpanAttrStatus)
	require.True(t, ok)
	assert.Equal(t, "failed", status.AsString())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.error")
	telemetry.RecordError(span, errors.New("deadlock detected"))
	telemetry.RecordError(span, nil)
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "deadlock detected", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestMarkFailed(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.failed")
	telemetry.MarkFailed(span, "HTTP 503: unavailable")
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Empty(t, ended.Events())
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "test.trace_id")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
}
