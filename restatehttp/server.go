// Package restatehttp adapts the invocation driver to HTTP/2 bidirectional
// streaming (spec §6 "Transport mapping"). It carries bytes only: framing,
// replay, and error mapping all live in the driver and invocation core; this
// package's only job is gluing an *http.Request body and an
// http.ResponseWriter to the driver's Stream interface.
package restatehttp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"restate.dev/sdk-go-core/driver"
	"restate.dev/sdk-go-core/manifest"
	"restate.dev/sdk-go-core/restate"
	"restate.dev/sdk-go-core/telemetry"
)

// requestCorrelationID returns the runtime-supplied request id if present,
// otherwise mints one for log correlation across this invocation's log
// lines. It is purely an observability aid: the wire protocol's own
// invocation id (carried in the Start message) is unaffected.
func requestCorrelationID(r *http.Request) string {
	if id := r.Header.Get("x-restate-request-id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// ServerOptions configures a Server as a typed options struct rather than a
// package-level global, following the driver's own Option pattern.
type ServerOptions struct {
	Registry     *restate.Registry
	Driver       *driver.Driver
	SDKName      string // sent as the x-restate-server header, e.g. "sdk-go-core/0.1.0"
	Logger       telemetry.Logger
	ProtocolMode string // defaults to "BIDI_STREAM"
}

// Server is the http.Handler implementing `POST /invoke/{service}/{handler}`
// and `GET /discover` (spec §6).
type Server struct {
	opts   ServerOptions
	router chi.Router
}

// New builds a Server. Registry must already be Finalize()d: the manifest and
// routing table are both derived from it once, at construction, matching the
// "frozen immutable after startup" process-wide state rule (spec §5).
func New(opts ServerOptions) *Server {
	if opts.ProtocolMode == "" {
		opts.ProtocolMode = "BIDI_STREAM"
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NoopLogger{}
	}
	s := &Server{opts: opts}
	r := chi.NewRouter()
	r.Post("/invoke/{service}/{handler}", s.handleInvoke)
	r.Get("/discover", s.handleDiscover)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	mimeType, ok := manifest.Negotiate(r.Header.Get("Accept"))
	if !ok {
		http.Error(w, "no mutually supported manifest version", http.StatusUnsupportedMediaType)
		return
	}
	m := manifest.Build(s.opts.Registry, s.opts.ProtocolMode)
	if err := manifest.Validate(m); err != nil {
		s.opts.Logger.Error(r.Context(), "manifest failed self-validation", "error", err)
		http.Error(w, "internal manifest error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	if s.opts.SDKName != "" {
		w.Header().Set("x-restate-server", s.opts.SDKName)
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(m)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	handlerName := chi.URLParam(r, "handler")
	requestID := requestCorrelationID(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.restate.invocation.v6")
	if s.opts.SDKName != "" {
		w.Header().Set("x-restate-server", s.opts.SDKName)
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &bidiStream{
		body:    r.Body,
		flushed: &flushWriter{w: w, flusher: flusher},
	}

	if err := s.opts.Driver.Serve(r.Context(), stream, service, handlerName); err != nil {
		s.opts.Logger.Error(r.Context(), "invocation stream ended with error",
			"request_id", requestID, "service", service, "handler", handlerName, "error", err)
	}
}

// bidiStream adapts an inbound request body and an outbound flushing
// response writer to the single driver.Stream interface (read half and
// write half are genuinely separate on HTTP/2, unlike a net.Conn).
type bidiStream struct {
	body    io.Reader
	flushed *flushWriter
}

func (b *bidiStream) Read(p []byte) (int, error)  { return b.body.Read(p) }
func (b *bidiStream) Write(p []byte) (int, error) { return b.flushed.Write(p) }

// flushWriter pushes every write straight to the network so each flushed
// frame reaches the runtime immediately (spec §6 "Response buffering must be
// disabled"), since protocol.Writer's own buffering already batches writes
// within one frame and only calls the underlying Writer at flush points.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("restatehttp: write to response: %w", err)
	}
	f.flusher.Flush()
	return n, nil
}
