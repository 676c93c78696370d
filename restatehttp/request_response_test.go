package restatehttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restate.dev/sdk-go-core/driver"
	"restate.dev/sdk-go-core/protocol"
)

func TestRequestResponseServerBuffersFullOutboundSequence(t *testing.T) {
	reg := echoRegistry(t)
	d := driver.New(reg)
	srv := NewRequestResponseServer(ServerOptions{Registry: reg, Driver: d})

	req := httptest.NewRequest(http.MethodPost, "/invoke/greeter/echo", invokeBody(t))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	r := protocol.NewReader(rec.Body)
	frame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.MessageOutput, frame.Type)

	endFrame, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, protocol.MessageEnd, endFrame.Type)
}

func TestRequestResponseServerRoutesDiscoverThrough(t *testing.T) {
	reg := echoRegistry(t)
	d := driver.New(reg)
	srv := NewRequestResponseServer(ServerOptions{Registry: reg, Driver: d})

	req := httptest.NewRequest(http.MethodGet, "/discover", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"protocolMode":"REQUEST_RESPONSE"`)
}

func TestParseInvokePathRejectsMalformedPaths(t *testing.T) {
	_, _, ok := parseInvokePath("/invoke/greeter")
	assert.False(t, ok)

	_, _, ok = parseInvokePath("/invoke/greeter/echo/extra")
	assert.False(t, ok)

	service, handler, ok := parseInvokePath("/invoke/greeter/echo")
	require.True(t, ok)
	assert.Equal(t, "greeter", service)
	assert.Equal(t, "echo", handler)
}
