// Package manifest builds and serves the discovery document the runtime
// fetches from `GET /discover` (spec §6 "Manifest shape").
package manifest

import "restate.dev/sdk-go-core/restate"

// Manifest is the top-level discovery document. Field names are camelCase
// to match the wire shape exactly.
type Manifest struct {
	ProtocolMode       string    `json:"protocolMode"`
	MinProtocolVersion int       `json:"minProtocolVersion"`
	MaxProtocolVersion int       `json:"maxProtocolVersion"`
	Services           []Service `json:"services"`
}

// Service describes one registered service and its handlers.
type Service struct {
	Name     string    `json:"name"`
	Ty       string    `json:"ty"`
	Handlers []Handler `json:"handlers"`
}

// Handler describes one registered handler's shape and content types, plus
// the optional retention/timeout metadata an Open Question (spec §9)
// resolves as manifest-only.
type Handler struct {
	Name   string `json:"name"`
	Ty     string `json:"ty,omitempty"`
	Input  Input  `json:"input"`
	Output Output `json:"output"`

	InactivityTimeoutMillis    *int64 `json:"inactivityTimeout,omitempty"`
	AbortTimeoutMillis         *int64 `json:"abortTimeout,omitempty"`
	IdempotencyRetentionMillis *int64 `json:"idempotencyRetention,omitempty"`
	JournalRetentionMillis     *int64 `json:"journalRetention,omitempty"`
	WorkflowRetentionMillis    *int64 `json:"workflowRetention,omitempty"`
	IngressPrivate             *bool  `json:"ingressPrivate,omitempty"`
}

// Input is a handler's input content-type descriptor. The zero value ({})
// means "accepts anything, nothing required".
type Input struct {
	Required    bool   `json:"required,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// Output is a handler's output content-type descriptor.
type Output struct {
	SetContentTypeIfEmpty bool   `json:"setContentTypeIfEmpty,omitempty"`
	ContentType           string `json:"contentType,omitempty"`
}

// shapeHandlerType maps a restate.Shape onto the manifest's "ty"
// discriminator for virtual-object and workflow handlers (shared-keyed and
// shared-workflow handlers both map to "SHARED"); stateless service
// handlers omit "ty" ("" here, dropped by omitempty).
func shapeHandlerType(shape restate.Shape) string {
	switch shape {
	case restate.ShapeExclusiveKeyed:
		return "EXCLUSIVE"
	case restate.ShapeSharedKeyed:
		return "SHARED"
	case restate.ShapeWorkflow:
		return "WORKFLOW"
	case restate.ShapeSharedWorkflow:
		return "SHARED"
	default:
		return ""
	}
}

func serviceKindTy(kind restate.ServiceKind) string {
	return string(kind)
}

// Build walks registry's frozen services and produces the manifest the
// /discover endpoint serves (spec §6, §5 "the service registry and the
// discovery manifest are the only process-wide state; both are frozen
// immutable after startup").
func Build(registry *restate.Registry, protocolMode string) *Manifest {
	m := &Manifest{
		ProtocolMode:       protocolMode,
		MinProtocolVersion: MinProtocolVersion,
		MaxProtocolVersion: MaxProtocolVersion,
	}
	for _, svc := range registry.Services() {
		s := Service{Name: svc.Name, Ty: serviceKindTy(svc.Kind)}
		for _, h := range svc.Handlers {
			s.Handlers = append(s.Handlers, Handler{
				Name: h.Name,
				Ty:   shapeHandlerType(h.Shape),
				Input: Input{
					Required:    h.InputRequired,
					ContentType: h.InputType,
				},
				Output: Output{
					SetContentTypeIfEmpty: h.OutputSetIfEmpty,
					ContentType:           h.OutputType,
				},
				InactivityTimeoutMillis:    h.InactivityTimeoutMillis,
				AbortTimeoutMillis:         h.AbortTimeoutMillis,
				IdempotencyRetentionMillis: h.IdempotencyRetentionMillis,
				JournalRetentionMillis:     h.JournalRetentionMillis,
				WorkflowRetentionMillis:    h.WorkflowRetentionMillis,
				IngressPrivate:             h.IngressPrivate,
			})
		}
		m.Services = append(m.Services, s)
	}
	return m
}

// MinProtocolVersion and MaxProtocolVersion are the invocation protocol
// range this SDK advertises on /invoke (spec §6, "the SDK must advertise
// support for v5..v6 in the manifest").
const (
	MinProtocolVersion = 5
	MaxProtocolVersion = 6
)
