package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_WithoutTracer(t *testing.T) {
	SetTracer(nil)
	ctx, span := StartSpan(context.Background(), "negotiation.Negotiator.Apply")
	require.NotNil(t, span)
	span.End()
	assert.Empty(t, GetTraceID(ctx))
	assert.Nil(t, GetActiveSpan(ctx))
}

// retainingExporter keeps spans past shutdown so they can be inspected
type retainingExporter struct {
	*tracetest.InMemoryExporter
}

func (retainingExporter) Shutdown(context.Context) error { return nil }

func TestSetup_ExportsSpans(t *testing.T) {
	exporter := retainingExporter{tracetest.NewInMemoryExporter()}
	shutdown := Setup("thistle-test", exporter)
	defer SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "decision.Coordinator.Decide")
	assert.Len(t, GetTraceID(ctx), 32)
	SetAttributes(span, map[string]string{"quote_id": "q-1"})
	RecordError(span, errors.New("no completed negotiations"))
	RecordError(span, nil)
	span.End()

	require.NoError(t, shutdown(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "decision.Coordinator.Decide", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
}
