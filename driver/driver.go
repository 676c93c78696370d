// Package driver implements the invocation driver (spec §4.8): the glue
// that owns a single invocation's transport, runs its start handshake,
// races the handler against the incoming-notification activity, and tears
// both down in the order the resource model requires.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"restate.dev/sdk-go-core/errs"
	"restate.dev/sdk-go-core/invocation"
	"restate.dev/sdk-go-core/protocol"
	"restate.dev/sdk-go-core/restate"
	"restate.dev/sdk-go-core/telemetry"
)

// Stream is the minimal transport the driver needs: a byte-oriented duplex
// carrying framed messages in both directions. restatehttp's bidi-stream
// handler and the REQUEST_RESPONSE buffered variant both satisfy this with
// an http.Request body / http.ResponseWriter pair and a bytes.Reader /
// bytes.Buffer pair, respectively; tests satisfy it with a pair of
// bytes.Buffers directly.
type Stream interface {
	io.Reader
	io.Writer
}

// halfCloser is the optional capability a Stream may expose to signal "no
// more writes" without tearing down the read side — an HTTP/2 stream or a
// *net.TCPConn both support it. The driver uses it opportunistically during
// teardown and tolerates its absence.
type halfCloser interface {
	CloseWrite() error
}

// Driver owns the process-wide handler registry and the optional
// capabilities (logging, tracing, codec) every invocation it serves
// inherits.
type Driver struct {
	registry *restate.Registry
	logger   telemetry.Logger
	tracer   telemetry.Tracer
	metrics  telemetry.Metrics
	codec    Codec
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger overrides the default no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(d *Driver) { d.logger = l } }

// WithTracer overrides the default no-op tracer.
func WithTracer(t telemetry.Tracer) Option { return func(d *Driver) { d.tracer = t } }

// WithMetrics overrides the default no-op metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(d *Driver) { d.metrics = m } }

// WithCodec overrides the default PassthroughCodec.
func WithCodec(c Codec) Option { return func(d *Driver) { d.codec = c } }

// New constructs a Driver over registry, which must already be Finalize'd.
func New(registry *restate.Registry, opts ...Option) *Driver {
	d := &Driver{
		registry: registry,
		logger:   telemetry.NoopLogger{},
		tracer:   telemetry.NoopTracer{},
		metrics:  telemetry.NoopMetrics{},
		codec:    PassthroughCodec{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ErrHandlerNotFound is returned (after having already told the runtime via
// a TerminalFailure output) when service/handler isn't registered.
var ErrHandlerNotFound = errors.New("driver: handler not found")

// Serve drives exactly one invocation end to end over stream (spec §4.8):
//
//  1. runs the start handshake
//  2. looks up the registered handler
//  3. starts the incoming-notification activity, linked to ctx
//  4. builds the capability façade and invokes the handler
//  5. maps the outcome onto Complete / TerminalFailure / TransientFailure
//  6. tears down in order: half-close the write side, cancel and await the
//     incoming activity, then fully close the stream
//
// Serve always performs step 6 before returning, even when an earlier step
// failed.
func (d *Driver) Serve(ctx context.Context, stream Stream, service, handlerName string) error {
	reader := protocol.NewReader(stream)
	writer := protocol.NewWriter(stream)
	machine := invocation.New(reader, writer, invocation.Options{Logger: d.logger, Tracer: d.tracer, Metrics: d.metrics})

	activityCtx, cancelActivity := context.WithCancel(ctx)
	activityDone := make(chan error, 1)
	activityStarted := false

	teardown := func() error {
		if hc, ok := stream.(halfCloser); ok {
			_ = hc.CloseWrite()
		}
		cancelActivity()
		if activityStarted {
			<-activityDone
		}
		if c, ok := stream.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}

	startRes, err := machine.Start(ctx)
	if err != nil {
		_ = teardown()
		return err
	}

	desc, ok := d.registry.Lookup(service, handlerName)
	if !ok {
		_ = machine.TerminalFailure(404, "handler not found: "+service+"/"+handlerName)
		_ = teardown()
		return ErrHandlerNotFound
	}

	activityStarted = true
	go func() { activityDone <- machine.RunIncomingActivity(activityCtx) }()

	input := startRes.Input
	fc := restate.New(ctx, machine)

	outcome, handlerErr := d.invokeHandler(desc, fc, input)
	if handlerErr == nil && len(outcome) == 0 && desc.OutputSetIfEmpty {
		outcome = []byte{}
	}

	completeErr := d.complete(machine, outcome, handlerErr)
	teardownErr := teardown()
	if completeErr != nil {
		return completeErr
	}
	return teardownErr
}

// invokeHandler calls desc.Handler, converting a panic into an error instead
// of letting it crash the process. A panicking handler is indistinguishable
// from any other uncaught handler error (spec §7): it surfaces through the
// same complete path as a returned error and becomes a retryable
// TransientFailure, since errs.AsFailure maps an unrecognized error to code
// 500.
func (d *Driver) invokeHandler(desc *restate.HandlerDescriptor, fc restate.StatelessContext, input []byte) (output []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return desc.Handler(fc, input)
}

// complete maps a handler's outcome onto the matching terminal wire message
// (spec §4.6.3 "Completion" / "Terminal failure" / "Transient failure").
// External cancellation propagates silently: no Output or Error frame is
// written, since the runtime already knows the invocation was cancelled.
func (d *Driver) complete(machine *invocation.Machine, output []byte, handlerErr error) error {
	if handlerErr == nil {
		return machine.Complete(output)
	}
	if errors.Is(handlerErr, context.Canceled) {
		return handlerErr
	}
	if errs.IsTerminal(handlerErr) {
		code, message := errs.AsFailure(handlerErr)
		return machine.TerminalFailure(code, message)
	}
	code, message := errs.AsFailure(handlerErr)
	return machine.TransientFailure(code, message)
}
