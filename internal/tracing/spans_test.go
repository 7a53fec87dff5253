package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, trace.Tracer) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp.Tracer("test")
}

func TestRun_Success(t *testing.T) {
	recorder, tracer := newRecorder(t)

	var inner context.Context
	err := Run(context.Background(), tracer, SpanPrefixRender+"document", func(ctx context.Context, span trace.Span) error {
		inner = ctx
		span.SetAttributes(attribute.Int(AttrDocumentRunes, 10))
		return nil
	}, attribute.String(AttrDocumentPath, "README.md"))
	require.NoError(t, err)
	require.True(t, trace.SpanContextFromContext(inner).IsValid())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "render.document", spans[0].Name())
	require.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.String(AttrDocumentPath, "README.md"))
	require.Contains(t, spans[0].Attributes(), attribute.Int(AttrDocumentRunes, 10))
}

func TestRun_Error(t *testing.T) {
	recorder, tracer := newRecorder(t)
	boom := errors.New("boom")

	err := Run(context.Background(), tracer, "failing", func(context.Context, trace.Span) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1, "error recorded as exception event")
}

func TestRecordError_NilIsIgnored(t *testing.T) {
	recorder, tracer := newRecorder(t)

	_, span := tracer.Start(context.Background(), "quiet")
	RecordError(span, nil)
	span.End()

	require.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}
