// Package telemetry defines the logging, metrics, and tracing interfaces used
// throughout the invocation core. Every component that needs to observe
// behavior (the state machine, the driver, the transport adapters) depends on
// these narrow interfaces rather than on a concrete backend, so a host process
// can wire clue/OTEL in production and a no-op implementation in tests.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured, context-scoped log messages. Implementations
	// must be safe for concurrent use; the invocation state machine's two
	// activities (handler and incoming-notification reader, see spec §5) may
	// both hold a reference to the same Logger.
	Logger interface {
		// Debug emits a debug-level message with alternating key/value pairs.
		Debug(ctx context.Context, msg string, keyvals ...any)
		// Info emits an info-level message with alternating key/value pairs.
		Info(ctx context.Context, msg string, keyvals ...any)
		// Warn emits a warning-level message with alternating key/value pairs.
		Warn(ctx context.Context, msg string, keyvals ...any)
		// Error emits an error-level message with alternating key/value pairs.
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges. Tag arguments are
	// alternating key, value strings.
	Metrics interface {
		// IncCounter increments a named counter by value.
		IncCounter(name string, value float64, tags ...string)
		// RecordTimer records a duration against a named histogram.
		RecordTimer(name string, duration time.Duration, tags ...string)
		// RecordGauge records an instantaneous value against a named gauge.
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer creates and retrieves spans.
	Tracer interface {
		// Start begins a new span named name, returning the derived context
		// and the span handle.
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		// Span returns the current span carried by ctx, or a no-op span if
		// none is present.
		Span(ctx context.Context) Span
	}

	// Span is a single unit of traced work.
	Span interface {
		// End completes the span.
		End(opts ...trace.SpanEndOption)
		// AddEvent records a named point-in-time event on the span.
		AddEvent(name string, attrs ...any)
		// SetStatus sets the span's completion status.
		SetStatus(code codes.Code, description string)
		// RecordError attaches an error to the span without ending it.
		RecordError(err error, opts ...trace.EventOption)
	}
)
