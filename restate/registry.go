package restate

import (
	"fmt"
	"sync"
)

// Shape identifies which capability interface a handler expects (spec §4.7).
type Shape int

const (
	ShapeStateless Shape = iota
	ShapeSharedKeyed
	ShapeExclusiveKeyed
	ShapeWorkflow
	ShapeSharedWorkflow
)

func (s Shape) String() string {
	switch s {
	case ShapeStateless:
		return "stateless"
	case ShapeSharedKeyed:
		return "shared_keyed"
	case ShapeExclusiveKeyed:
		return "exclusive_keyed"
	case ShapeWorkflow:
		return "workflow"
	case ShapeSharedWorkflow:
		return "shared_workflow"
	default:
		return "unknown"
	}
}

// HandlerFunc is the shape-erased entry point the driver invokes: every
// handler, regardless of declared Shape, can accept the base
// StatelessContext capability set; a handler that needs a wider shape
// (e.g. WorkflowContext) type-asserts fc to it, which always succeeds
// because the driver always passes the single concrete façade that
// satisfies every capability interface (spec §4.7).
type HandlerFunc func(fc StatelessContext, input []byte) ([]byte, error)

// HandlerDescriptor is one registered handler: its shape, its entry point,
// and the content-type and retention hints the discovery manifest
// advertises for it. The retention/timeout fields are surfaced through the
// manifest only (spec §9 Open Question "retention and timeout fields"); the
// core neither reads nor enforces them.
type HandlerDescriptor struct {
	Name             string
	Shape            Shape
	Handler          HandlerFunc
	InputRequired    bool
	InputType        string
	OutputType       string
	OutputSetIfEmpty bool

	InactivityTimeoutMillis    *int64
	AbortTimeoutMillis         *int64
	IdempotencyRetentionMillis *int64
	JournalRetentionMillis     *int64
	WorkflowRetentionMillis    *int64
	IngressPrivate             *bool
}

// ServiceKind identifies the manifest's "ty" discriminator (spec §6
// "Manifest shape").
type ServiceKind string

const (
	KindService       ServiceKind = "SERVICE"
	KindVirtualObject ServiceKind = "VIRTUAL_OBJECT"
	KindWorkflow      ServiceKind = "WORKFLOW"
)

// ServiceDescriptor groups a named service's handlers under its kind.
type ServiceDescriptor struct {
	Name     string
	Kind     ServiceKind
	Handlers map[string]*HandlerDescriptor
}

// Registry is the process-wide, frozen-after-Finalize map from
// (service, handler) to its descriptor (spec §5 "the service registry...
// [is] process-wide state; both are frozen immutable after startup").
type Registry struct {
	mu       sync.RWMutex
	services map[string]*ServiceDescriptor
	frozen   bool
}

// NewRegistry constructs an empty, mutable registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*ServiceDescriptor)}
}

// Register adds handler to service, creating the service descriptor on
// first use. Panics if called after Finalize: failing fast on a programming
// error is preferable to returning a runtime error for what is always a
// startup-time mistake.
func (r *Registry) Register(service string, kind ServiceKind, handler *HandlerDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic(fmt.Sprintf("restate: Register(%s/%s) called after Finalize", service, handler.Name))
	}
	svc, ok := r.services[service]
	if !ok {
		svc = &ServiceDescriptor{Name: service, Kind: kind, Handlers: make(map[string]*HandlerDescriptor)}
		r.services[service] = svc
	}
	svc.Handlers[handler.Name] = handler
}

// Finalize freezes the registry. Subsequent Register calls panic.
func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Lookup returns the handler descriptor for (service, handler), if any.
func (r *Registry) Lookup(service, handler string) (*HandlerDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[service]
	if !ok {
		return nil, false
	}
	h, ok := svc.Handlers[handler]
	return h, ok
}

// Services returns every registered service descriptor, for the manifest
// builder to walk.
func (r *Registry) Services() []*ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ServiceDescriptor, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out
}
