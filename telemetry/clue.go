package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

type (
	// ClueLogger wraps goa.design/clue/log for invocation-scoped logging.
	ClueLogger struct{}

	// ClueMetrics wraps OTEL metrics for invocation instrumentation. Every
	// invocation on a busy service calls IncCounter/RecordTimer with the
	// same small set of metric names (one per primitive, scoped further by
	// tags), so instruments are created once per name and cached rather
	// than looked up from the meter on every call.
	ClueMetrics struct {
		meter metric.Meter

		mu         sync.Mutex
		counters   map[string]metric.Float64Counter
		histograms map[string]metric.Float64Histogram
	}

	// ClueTracer wraps OTEL tracing for invocation spans.
	ClueTracer struct {
		tracer trace.Tracer
	}

	clueSpan struct {
		span trace.Span
	}
)

const instrumentationName = "restate.dev/sdk-go-core"

// NewClueLogger constructs a Logger that delegates to goa.design/clue/log.
// The logger reads formatting and debug settings from the context (set via
// log.Context and log.WithFormat/log.WithDebug by the host process).
func NewClueLogger() Logger {
	return ClueLogger{}
}

// NewClueMetrics constructs a Metrics recorder backed by the global OTEL
// MeterProvider. Configure the provider before starting any invocation.
func NewClueMetrics() Metrics {
	return &ClueMetrics{
		meter:      otel.Meter(instrumentationName),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// NewClueTracer constructs a Tracer backed by the global OTEL TracerProvider.
func NewClueTracer() Tracer {
	return &ClueTracer{tracer: otel.Tracer(instrumentationName)}
}

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	fielders := []log.Fielder{log.KV{K: "msg", V: msg}, log.KV{K: "severity", V: "warning"}}
	log.Warn(ctx, append(fielders, kvSliceToClue(keyvals)...)...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvSliceToClue(keyvals)...)...)
}

// counter returns the cached Float64Counter for name, creating and caching
// it on first use.
func (m *ClueMetrics) counter(name string) (metric.Float64Counter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, true
	}
	c, err := m.meter.Float64Counter(name)
	if err != nil {
		return metric.Float64Counter{}, false
	}
	m.counters[name] = c
	return c, true
}

// histogram returns the cached Float64Histogram for name, creating and
// caching it on first use.
func (m *ClueMetrics) histogram(name string) (metric.Float64Histogram, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h, true
	}
	h, err := m.meter.Float64Histogram(name)
	if err != nil {
		return metric.Float64Histogram{}, false
	}
	m.histograms[name] = h
	return h, true
}

// IncCounter increments a counter metric by value.
func (m *ClueMetrics) IncCounter(name string, value float64, tags ...string) {
	c, ok := m.counter(name)
	if !ok {
		return
	}
	c.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordTimer records a duration histogram metric, in seconds.
func (m *ClueMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	h, ok := m.histogram(name)
	if !ok {
		return
	}
	h.Record(context.Background(), duration.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordGauge records an instantaneous value, such as
// restate.invocation.replayed_entries. OTEL has no synchronous gauge
// instrument, so this records a single-sample histogram suffixed "_gauge";
// every OTEL-compatible backend can chart a single-sample histogram's last
// value the same way it would a gauge.
func (m *ClueMetrics) RecordGauge(name string, value float64, tags ...string) {
	h, ok := m.histogram(name + "_gauge")
	if !ok {
		return
	}
	h.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &clueSpan{span: span}
}

func (t *ClueTracer) Span(ctx context.Context) Span {
	return &clueSpan{span: trace.SpanFromContext(ctx)}
}

func (s *clueSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *clueSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(kvSliceToAttrs(attrs)...))
}

func (s *clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// pairAt returns keyvals[i] and keyvals[i+1], substituting nil when i+1 runs
// past the end. Every alternating-pair conversion below walks a slice this
// way, so the bounds check lives in one place.
func pairAt(keyvals []any, i int) (any, any) {
	if i+1 < len(keyvals) {
		return keyvals[i], keyvals[i+1]
	}
	return keyvals[i], nil
}

// kvSliceToClue converts alternating key/value pairs into clue Fielders.
// Non-string keys are skipped.
func kvSliceToClue(keyvals []any) []log.Fielder {
	var fielders []log.Fielder
	for i := 0; i < len(keyvals); i += 2 {
		k, v := pairAt(keyvals, i)
		kStr, ok := k.(string)
		if !ok {
			continue
		}
		fielders = append(fielders, log.KV{K: kStr, V: v})
	}
	return fielders
}

// tagsToAttrs converts alternating tag strings into OTEL string attributes.
func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(tags[i], v))
	}
	return attrs
}

// attrFor builds the OTEL attribute matching v's concrete type, falling back
// to an empty string attribute for kinds span events don't carry.
func attrFor(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case bool:
		return attribute.Bool(key, val)
	default:
		return attribute.String(key, "")
	}
}

// kvSliceToAttrs converts alternating key/value pairs into OTEL attributes
// for span events, type-switching common value kinds via attrFor.
func kvSliceToAttrs(keyvals []any) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i := 0; i < len(keyvals); i += 2 {
		k, v := pairAt(keyvals, i)
		keyStr, _ := k.(string)
		attrs = append(attrs, attrFor(keyStr, v))
	}
	return attrs
}
