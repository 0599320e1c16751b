package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps an OpenTelemetry tracer with query-model span helpers.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// NewNoopTracer creates a tracer that does nothing.
func NewNoopTracer() *Tracer {
	return &Tracer{tracer: tracenoop.NewTracerProvider().Tracer("")}
}

// StartSpan starts a span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartParse starts a span for parsing one call chain.
func (t *Tracer) StartParse(ctx context.Context, chain string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanParse, trace.WithAttributes(ChainAttr(chain)))
}

// StartExecute starts a span for executing one model.
func (t *Tracer) StartExecute(ctx context.Context, rendering, queryID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanExecute, trace.WithAttributes(
		ModelAttr(rendering),
		QueryIDAttr(queryID),
	))
}

// StartOperator starts a span for one result operator evaluated in memory.
func (t *Tracer) StartOperator(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanOperator, trace.WithAttributes(OperatorAttr(name)))
}

// RecordError records err on span and marks it failed. A nil err is a
// no-op.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with the span context in ctx.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
