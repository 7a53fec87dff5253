package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrDocumentPath  = "document.path"
	AttrDocumentRunes = "document.runes"
	AttrNodesVisited  = "style.nodes.visited"
	AttrNodesSkipped  = "style.nodes.skipped"
	AttrBlocksPending = "style.blocks.pending"

	AttrRequestID    = "highlight.request.id"
	AttrLanguage     = "highlight.language"
	AttrLexer        = "highlight.lexer"
	AttrBlockRunes   = "highlight.block.runes"
	AttrSpanCount    = "highlight.spans"
	AttrCacheHit     = "highlight.cache.hit"

	AttrRenderWidth = "render.width"
	AttrRenderLines = "render.lines"
)

// Span name prefixes.
const (
	SpanPrefixStyle     = "style."
	SpanPrefixHighlight = "highlight."
	SpanPrefixRender    = "render."
)

// Event names.
const (
	EventCacheHit  = "cache.hit"
	EventCacheMiss = "cache.miss"
)

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Run wraps fn in a span named name. Errors returned by fn are recorded on
// the span and passed through.
func Run(ctx context.Context, tracer trace.Tracer, name string, fn func(ctx context.Context, span trace.Span) error, attrs ...attribute.KeyValue) error {
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	if err := fn(ctx, span); err != nil {
		RecordError(span, err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
