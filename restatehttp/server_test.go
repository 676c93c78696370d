package restatehttp

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restate.dev/sdk-go-core/driver"
	"restate.dev/sdk-go-core/protocol"
	"restate.dev/sdk-go-core/restate"
)

func writeFrame(t *testing.T, buf *bytes.Buffer, msgType protocol.MessageType, payload []byte) {
	t.Helper()
	w := protocol.NewWriter(buf)
	require.NoError(t, w.WriteFrame(msgType, 0, payload))
	require.NoError(t, w.Flush())
}

func echoRegistry(t *testing.T) *restate.Registry {
	t.Helper()
	reg := restate.NewRegistry()
	reg.Register("greeter", restate.KindService, &restate.HandlerDescriptor{
		Name:  "echo",
		Shape: restate.ShapeStateless,
		Handler: func(fc restate.StatelessContext, input []byte) ([]byte, error) {
			return input, nil
		},
	})
	reg.Finalize()
	return reg
}

func invokeBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body := &bytes.Buffer{}
	writeFrame(t, body, protocol.MessageStart, (&protocol.StartMessage{
		InvocationID: []byte{0x01},
		DebugID:      "inv-http",
		KnownEntries: 1,
		RandomSeed:   1,
	}).Marshal())
	writeFrame(t, body, protocol.MessageInput, (&protocol.InputMessage{Value: []byte("ping")}).Marshal())
	return body
}

func TestHandleInvokeStreamsOutputAndEnd(t *testing.T) {
	reg := echoRegistry(t)
	d := driver.New(reg)
	srv := New(ServerOptions{Registry: reg, Driver: d, SDKName: "sdk-go-core/test"})

	req := httptest.NewRequest(http.MethodPost, "/invoke/greeter/echo", invokeBody(t))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.restate.invocation.v6", rec.Header().Get("Content-Type"))
	assert.Equal(t, "sdk-go-core/test", rec.Header().Get("x-restate-server"))

	r := protocol.NewReader(rec.Body)
	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.MessageOutput, frame.Type)
	output, err := protocol.UnmarshalOutput(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), output.Value)

	endFrame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.MessageEnd, endFrame.Type)
}

func TestHandleInvokeUnknownHandlerStillReturns200WithFailureFrame(t *testing.T) {
	reg := restate.NewRegistry()
	reg.Finalize()
	d := driver.New(reg)
	srv := New(ServerOptions{Registry: reg, Driver: d})

	req := httptest.NewRequest(http.MethodPost, "/invoke/greeter/missing", invokeBody(t))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	// The driver reports a stream-level error through the server's logger,
	// not the HTTP status: headers are already flushed by the time the
	// handler lookup fails (frames, not HTTP status, carry the outcome).
	assert.Equal(t, http.StatusOK, rec.Code)

	r := protocol.NewReader(rec.Body)
	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.MessageOutput, frame.Type)
}

func TestHandleDiscoverReturnsManifestForDefaultAccept(t *testing.T) {
	reg := echoRegistry(t)
	d := driver.New(reg)
	srv := New(ServerOptions{Registry: reg, Driver: d, ProtocolMode: "BIDI_STREAM"})

	req := httptest.NewRequest(http.MethodGet, "/discover", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.restate.endpointmanifest.v1+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"protocolMode":"BIDI_STREAM"`)
	assert.Contains(t, rec.Body.String(), `"greeter"`)
}

func TestHandleDiscoverRejectsUnsupportedAccept(t *testing.T) {
	reg := echoRegistry(t)
	d := driver.New(reg)
	srv := New(ServerOptions{Registry: reg, Driver: d})

	req := httptest.NewRequest(http.MethodGet, "/discover", nil)
	req.Header.Set("Accept", "application/vnd.restate.endpointmanifest.v99+json")
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
