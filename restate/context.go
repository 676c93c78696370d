// Package restate implements the handler-facing capability lattice (spec
// §4.7): five narrowing context interfaces over one concrete implementation
// that delegates every call straight through to the invocation state
// machine. The façade holds no state of its own.
package restate

import (
	"context"
	"math/rand"
	"time"

	"restate.dev/sdk-go-core/completion"
	"restate.dev/sdk-go-core/errs"
	"restate.dev/sdk-go-core/invocation"
	"restate.dev/sdk-go-core/retry"
)

// RunOptions configures a Run side effect.
type RunOptions struct {
	Name   string
	Policy retry.Policy
}

// CallOptions configures a Call or Send, re-exported from invocation so
// handler code never imports that package directly.
type CallOptions = invocation.CallOptions

// AwakeableHandle is the pair an Awakeable call returns: the id to hand to
// an external resolver, and the future a handler awaits for the resolution.
type AwakeableHandle struct {
	ID    string
	Await func() ([]byte, error)
}

// StatelessContext is the capability set available to every handler
// regardless of service kind (spec §4.7 "Stateless context"): side
// effects, calls, sends, sleep/timer, awakeables, attach/get-output,
// random, and the invocation's cancellation token.
type StatelessContext interface {
	// Context returns the context.Context the driver served the invocation
	// with; it is cancelled only when that context is cancelled. The end or
	// closing of the invocation's stream does not cancel it.
	Context() context.Context

	// Run executes a named side effect exactly once across replay.
	Run(opts RunOptions, thunk invocation.RunThunk) ([]byte, error)
	// RunRestricted is Run with a thunk that receives only the cancellation
	// context — no logger is passed and no nested durable primitives are
	// reachable from it.
	RunRestricted(opts RunOptions, thunk func(ctx context.Context) ([]byte, error)) ([]byte, error)

	// Call invokes another handler and blocks for its result.
	Call(service, handler string, request []byte, opts CallOptions) ([]byte, string, error)
	// Send fires a one-way call and returns its invocation handle.
	Send(service, handler string, request []byte, opts CallOptions) (string, error)

	// Sleep blocks until duration has elapsed, durably.
	Sleep(duration time.Duration) error
	// Timer is the non-blocking counterpart to Sleep: it returns a handle
	// whose Wait blocks, letting callers compose it with other awaitables.
	Timer(duration time.Duration) (*completion.Rendezvous, error)

	// Awakeable allocates a new durable external rendezvous.
	Awakeable() (AwakeableHandle, error)
	// ResolveAwakeable completes an awakeable (possibly owned by another
	// invocation) with a success value.
	ResolveAwakeable(id string, value []byte) error
	// RejectAwakeable completes an awakeable with a failure.
	RejectAwakeable(id string, code uint16, reason string) error

	// Attach blocks until the target invocation completes and returns its
	// result.
	Attach(targetInvocationID string) ([]byte, error)
	// GetInvocationOutput polls the target invocation's output without
	// blocking indefinitely.
	GetInvocationOutput(targetInvocationID string) ([]byte, bool, error)
	// CancelInvocation sends the built-in CANCEL signal to another
	// invocation.
	CancelInvocation(targetInvocationID string) error

	// Rand returns the invocation-seeded deterministic PRNG.
	Rand() *rand.Rand

	// InvocationID returns this invocation's debug id.
	InvocationID() string
	// Headers returns the Input frame's headers.
	Headers() map[string]string
}

// SharedKeyedContext extends StatelessContext with the key and read-only
// state access shared handlers of a virtual object or workflow may use
// concurrently (spec §4.7 "Shared keyed context").
type SharedKeyedContext interface {
	StatelessContext

	// Key returns the keyed invocation's routing key.
	Key() string
	// Get reads a keyed state value.
	Get(key string) ([]byte, bool, error)
	// StateKeys returns the set of currently-set state keys.
	StateKeys() ([]string, error)
}

// ExclusiveKeyedContext extends SharedKeyedContext with mutation, available
// only to a virtual object's exclusive handlers (spec §4.7 "Exclusive keyed
// context").
type ExclusiveKeyedContext interface {
	SharedKeyedContext

	// Set durably sets a keyed state value.
	Set(key string, value []byte) error
	// Clear durably clears a single keyed state value.
	Clear(key string) error
	// ClearAll durably clears every keyed state value.
	ClearAll() error
}

// WorkflowContext extends ExclusiveKeyedContext with blocking promises,
// available to a workflow's run handler (spec §4.7 "Workflow context").
type WorkflowContext interface {
	ExclusiveKeyedContext

	// Promise blocks until a named workflow promise resolves.
	Promise(name string) ([]byte, error)
	// PeekPromise reads a named workflow promise without blocking.
	PeekPromise(name string) ([]byte, bool, error)
	// ResolvePromise resolves a named workflow promise with a success value.
	ResolvePromise(name string, value []byte) error
	// RejectPromise resolves a named workflow promise with a failure.
	RejectPromise(name string, code uint16, reason string) error
}

// SharedWorkflowContext extends SharedKeyedContext with the non-blocking
// promise operations available to a workflow's shared handlers (spec §4.7
// "Shared workflow context") — no blocking Promise, since a shared handler
// must never hold up another shared handler's execution.
type SharedWorkflowContext interface {
	SharedKeyedContext

	// PeekPromise reads a named workflow promise without blocking.
	PeekPromise(name string) ([]byte, bool, error)
	// ResolvePromise resolves a named workflow promise with a success value.
	ResolvePromise(name string, value []byte) error
	// RejectPromise resolves a named workflow promise with a failure.
	RejectPromise(name string, code uint16, reason string) error
}

// facadeContext is the single concrete implementation behind every
// capability interface above; it holds no state beyond the machine and the
// derived cancellation context (spec §4.7, design note "single concrete
// state machine plus four narrow interface views").
type facadeContext struct {
	machine *invocation.Machine
	ctx     context.Context
}

// New wraps a machine in the full-capability concrete façade. The driver
// passes the returned value to every handler as a StatelessContext,
// whatever the handler's shape; a handler that needs a wider shape
// type-asserts it (see HandlerFunc).
func New(ctx context.Context, machine *invocation.Machine) *facadeContext {
	return &facadeContext{machine: machine, ctx: ctx}
}

func (f *facadeContext) Context() context.Context { return f.ctx }

func (f *facadeContext) Run(opts RunOptions, thunk invocation.RunThunk) ([]byte, error) {
	return f.machine.Run(f.ctx, opts.Name, opts.Policy, thunk)
}

func (f *facadeContext) RunRestricted(opts RunOptions, thunk func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	return f.machine.Run(f.ctx, opts.Name, opts.Policy, func(ctx context.Context) ([]byte, error) {
		return thunk(ctx)
	})
}

func (f *facadeContext) Call(service, handler string, request []byte, opts CallOptions) ([]byte, string, error) {
	return f.machine.Call(f.ctx, service, handler, request, opts)
}

func (f *facadeContext) Send(service, handler string, request []byte, opts CallOptions) (string, error) {
	return f.machine.Send(f.ctx, service, handler, request, opts)
}

func (f *facadeContext) Sleep(duration time.Duration) error {
	return f.machine.Sleep(f.ctx, duration)
}

func (f *facadeContext) Timer(duration time.Duration) (*completion.Rendezvous, error) {
	return f.machine.TimerRendezvous(duration)
}

func (f *facadeContext) Awakeable() (AwakeableHandle, error) {
	id, r, err := f.machine.Awakeable()
	if err != nil {
		return AwakeableHandle{}, err
	}
	return AwakeableHandle{
		ID: id,
		Await: func() ([]byte, error) {
			result, err := r.Wait()
			if err != nil {
				return nil, err
			}
			return result.Value, nil
		},
	}, nil
}

func (f *facadeContext) ResolveAwakeable(id string, value []byte) error {
	return f.machine.ResolveAwakeable(id, value)
}

func (f *facadeContext) RejectAwakeable(id string, code uint16, reason string) error {
	return f.machine.RejectAwakeable(id, code, reason)
}

func (f *facadeContext) Attach(targetInvocationID string) ([]byte, error) {
	return f.machine.Attach(targetInvocationID)
}

func (f *facadeContext) GetInvocationOutput(targetInvocationID string) ([]byte, bool, error) {
	return f.machine.GetInvocationOutput(targetInvocationID)
}

func (f *facadeContext) CancelInvocation(targetInvocationID string) error {
	return f.machine.CancelInvocation(targetInvocationID)
}

func (f *facadeContext) Rand() *rand.Rand { return f.machine.Rand() }

func (f *facadeContext) InvocationID() string { return f.machine.InvocationID() }

func (f *facadeContext) Headers() map[string]string { return f.machine.Headers() }

func (f *facadeContext) Key() string { return f.machine.Key() }

func (f *facadeContext) Get(key string) ([]byte, bool, error) { return f.machine.GetState(key) }

func (f *facadeContext) StateKeys() ([]string, error) { return f.machine.StateKeys() }

func (f *facadeContext) Set(key string, value []byte) error { return f.machine.SetState(key, value) }

func (f *facadeContext) Clear(key string) error { return f.machine.ClearState(key) }

func (f *facadeContext) ClearAll() error { return f.machine.ClearAllState() }

func (f *facadeContext) Promise(name string) ([]byte, error) { return f.machine.GetPromise(name) }

func (f *facadeContext) PeekPromise(name string) ([]byte, bool, error) {
	return f.machine.PeekPromise(name)
}

func (f *facadeContext) ResolvePromise(name string, value []byte) error {
	return f.machine.ResolvePromise(name, value)
}

func (f *facadeContext) RejectPromise(name string, code uint16, reason string) error {
	return f.machine.RejectPromise(name, code, reason)
}

// TerminalError re-exports errs.TerminalError so handler code raising a
// business failure never imports the errs package directly.
type TerminalError = errs.TerminalError

// NewTerminalError constructs a non-retryable handler failure.
func NewTerminalError(code uint16, message string) *TerminalError {
	return errs.NewTerminal(code, message)
}
