package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// InvocationScope binds a Logger, Metrics, and Tracer to one invocation's id
// and key, so the state machine never has to thread "invocation_id" through
// every log field and metric tag by hand. A driver builds one scope per
// invocation, once the Start frame has revealed the invocation's identity,
// and the machine uses the scope's Logger/Tracer/Metrics in place of the
// ones it was constructed with.
type InvocationScope struct {
	Logger  Logger
	Metrics Metrics
	Tracer  Tracer
}

// NewInvocationScope wraps logger/metrics/tracer so every emitted log field
// and metric tag carries invocationID, plus key when the handler is keyed.
func NewInvocationScope(logger Logger, metrics Metrics, tracer Tracer, invocationID, key string) *InvocationScope {
	return &InvocationScope{
		Logger:  scopedLogger{inner: logger, invocationID: invocationID, key: key},
		Metrics: scopedMetrics{inner: metrics, invocationID: invocationID},
		Tracer:  scopedTracer{inner: tracer, invocationID: invocationID},
	}
}

type scopedLogger struct {
	inner        Logger
	invocationID string
	key          string
}

func (l scopedLogger) scope(keyvals []any) []any {
	out := make([]any, 0, len(keyvals)+4)
	out = append(out, "invocation_id", l.invocationID)
	if l.key != "" {
		out = append(out, "key", l.key)
	}
	return append(out, keyvals...)
}

func (l scopedLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	l.inner.Debug(ctx, msg, l.scope(keyvals)...)
}

func (l scopedLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	l.inner.Info(ctx, msg, l.scope(keyvals)...)
}

func (l scopedLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	l.inner.Warn(ctx, msg, l.scope(keyvals)...)
}

func (l scopedLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	l.inner.Error(ctx, msg, l.scope(keyvals)...)
}

type scopedMetrics struct {
	inner        Metrics
	invocationID string
}

func (m scopedMetrics) scope(tags []string) []string {
	return append([]string{"invocation_id", m.invocationID}, tags...)
}

func (m scopedMetrics) IncCounter(name string, value float64, tags ...string) {
	m.inner.IncCounter(name, value, m.scope(tags)...)
}

func (m scopedMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	m.inner.RecordTimer(name, duration, m.scope(tags)...)
}

func (m scopedMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.inner.RecordGauge(name, value, m.scope(tags)...)
}

// scopedTracer prefixes every span name with the invocation id so spans
// from concurrent invocations are distinguishable in a backend that groups
// by span name rather than by a resource attribute.
type scopedTracer struct {
	inner        Tracer
	invocationID string
}

func (t scopedTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	return t.inner.Start(ctx, "invocation["+t.invocationID+"]/"+name, opts...)
}

func (t scopedTracer) Span(ctx context.Context) Span {
	return t.inner.Span(ctx)
}
