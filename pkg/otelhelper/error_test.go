package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetError(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := otelhelper.StartSpan(context.Background(), provider.Tracer("test"), "workflow.action",
		attribute.String(otelhelper.ActionTypeKey, "webhook"))
	otelhelper.SetError(span, errors.New("endpoint down"), attribute.String(otelhelper.StepIDKey, "s-1"))
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		assert.Equal(t, "endpoint down", spans[0].Status().Description)
		assert.Equal(t, "workflow.action", spans[0].Name())
	}
}

func TestSetError_NilLeavesSpanUnset(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "workflow.execution")
	otelhelper.SetError(span, nil)
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, codes.Unset, spans[0].Status().Code)
		assert.Empty(t, spans[0].Events())
	}
}

func TestSetOK(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := provider.Tracer("test").Start(context.Background(), "workflow.execution")
	otelhelper.SetOK(span)
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, codes.Ok, spans[0].Status().Code)
	}
}
