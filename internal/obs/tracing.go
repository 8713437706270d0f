// Package obs carries the ambient observability plumbing that would
// otherwise live in a shared "stem"-style internal library: tracing span
// helpers and request-scoped context accessors, adapted from
// stem/pkg/tracing/tracing.go and stem/pkg/context/context.go. Unlike
// Gobusters/ecto* (kept as genuine external dependencies), this package is
// inlined here because stem is a sibling module of the same teacher
// monorepo with no publishable module path of its own.
package obs

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// SetTracer installs the tracer used by StartSpan. Called once at startup
// from cmd/server/main.go after the OTel SDK is configured.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a new span named spanName, or is a no-op if no tracer
// has been installed (e.g. in tests).
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

// GetActiveSpan returns the active span from the context, or nil.
func GetActiveSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

// GetTraceID returns the active trace id, or "".
func GetTraceID(ctx context.Context) string {
	span := GetActiveSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// GetTraceParent returns the W3C traceparent header value for propagation.
func GetTraceParent(ctx context.Context) string {
	span := GetActiveSpan(ctx)
	if span == nil {
		return ""
	}
	tp := propagation.TraceContext{}
	carrier := propagation.MapCarrier{}
	tp.Inject(ctx, carrier)
	return carrier.Get("traceparent")
}
