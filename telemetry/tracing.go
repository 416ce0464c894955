// Package telemetry provides OpenTelemetry tracing for store operations and
// the OTLP provider setup used by cmd/reverie.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName names the tracer used across reverie.
const InstrumentationName = "github.com/vinayprograms/reverie"

// Tracer wraps an OpenTelemetry tracer with store-specific helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // When true, include record content in span attributes
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracer creates a tracer backed by the global OpenTelemetry provider.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		debug:  debug,
	}
}

// NewTracerFromProvider creates a tracer backed by tp.
func NewTracerFromProvider(tp trace.TracerProvider, debug bool) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(InstrumentationName),
		debug:  debug,
	}
}

// Debug returns whether debug mode is enabled.
func (t *Tracer) Debug() bool {
	return t.debug
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Store Spans ---

// StoreSpanOptions describes the outcome of a store operation.
type StoreSpanOptions struct {
	Backend string // file, memory
	Key     string
	Count   int    // entries written or read
	Prompt  string // Only included if debug=true
}

// StartStoreSpan starts a span for a store operation (save, list, get, scan).
func (t *Tracer) StartStoreSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "store."+op, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("store.op", op))
	return ctx, span
}

// EndStoreSpan ends a store span with attributes.
func (t *Tracer) EndStoreSpan(span trace.Span, opts StoreSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("store.count", opts.Count),
	}
	if opts.Backend != "" {
		attrs = append(attrs, attribute.String("store.backend", opts.Backend))
	}
	if opts.Key != "" {
		attrs = append(attrs, attribute.String("store.key", opts.Key))
	}
	if t.debug && opts.Prompt != "" {
		attrs = append(attrs, attribute.String("store.prompt", truncate(opts.Prompt, 2000)))
	}

	span.SetAttributes(attrs...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// --- Event Spans ---

// StartPublishSpan starts a producer span for publishing a bus event.
func (t *Tracer) StartPublishSpan(ctx context.Context, subject string) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "publish "+subject, trace.WithSpanKind(trace.SpanKindProducer))
	span.SetAttributes(attribute.String("messaging.destination.name", subject))
	return ctx, span
}

// EndSpan ends any span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
