package restatehttp

import (
	"bytes"
	"io"
	"net/http"
)

// bufferedStream satisfies driver.Stream over two in-memory buffers: the
// entire inbound frame sequence has already arrived by the time Serve starts
// reading, and the entire outbound sequence accumulates before the single
// response is written (spec §6 "REQUEST_RESPONSE... the entire inbound frame
// sequence arrives in one request body and the outbound sequence is returned
// in one response body").
type bufferedStream struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (b *bufferedStream) Read(p []byte) (int, error)  { return b.in.Read(p) }
func (b *bufferedStream) Write(p []byte) (int, error) { return b.out.Write(p) }

// RequestResponseServer is the REQUEST_RESPONSE analogue of Server for hosts
// (e.g. serverless function platforms) that can't keep a streaming
// connection open for the lifetime of an invocation. It reuses the exact
// same driver and registry; only the transport framing around them differs.
type RequestResponseServer struct {
	opts   ServerOptions
	server *Server
}

// NewRequestResponseServer builds a RequestResponseServer. opts.ProtocolMode
// defaults to "REQUEST_RESPONSE" rather than "BIDI_STREAM" so the manifest
// correctly advertises this mode to the runtime.
func NewRequestResponseServer(opts ServerOptions) *RequestResponseServer {
	if opts.ProtocolMode == "" {
		opts.ProtocolMode = "REQUEST_RESPONSE"
	}
	server := New(opts)
	return &RequestResponseServer{opts: server.opts, server: server}
}

func (s *RequestResponseServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.URL.Path == "/discover" {
		s.server.ServeHTTP(w, r)
		return
	}
	s.handleInvoke(w, r)
}

func (s *RequestResponseServer) handleInvoke(w http.ResponseWriter, r *http.Request) {
	service, handlerName, ok := parseInvokePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	stream := &bufferedStream{in: bytes.NewReader(body)}
	if err := s.opts.Driver.Serve(r.Context(), stream, service, handlerName); err != nil {
		s.opts.Logger.Error(r.Context(), "invocation stream ended with error",
			"service", service, "handler", handlerName, "error", err)
	}

	w.Header().Set("Content-Type", "application/vnd.restate.invocation.v6")
	if s.opts.SDKName != "" {
		w.Header().Set("x-restate-server", s.opts.SDKName)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(stream.out.Bytes())
}

// parseInvokePath extracts {service} and {handler} from
// "/invoke/{service}/{handler}" without pulling in chi's router, since this
// server is meant to be embeddable directly as a platform function's single
// entry point rather than mounted on a multiplexer.
func parseInvokePath(path string) (service, handler string, ok bool) {
	const prefix = "/invoke/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return "", "", false
	}
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			service, handler = rest[:i], rest[i+1:]
			if service == "" || handler == "" || containsSlash(handler) {
				return "", "", false
			}
			return service, handler, true
		}
	}
	return "", "", false
}

func containsSlash(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return true
		}
	}
	return false
}
