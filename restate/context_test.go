package restate

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restate.dev/sdk-go-core/invocation"
	"restate.dev/sdk-go-core/protocol"
)

func newStartedMachineWithInput(t *testing.T) (*bytes.Buffer, *invocation.Machine) {
	t.Helper()
	in := &bytes.Buffer{}
	m := invocation.New(protocol.NewReader(in), protocol.NewWriter(&bytes.Buffer{}), invocation.Options{})
	writeFrame(t, in, protocol.MessageStart, (&protocol.StartMessage{
		InvocationID: []byte{0xCD},
		DebugID:      "inv-awk",
		KnownEntries: 1,
		RandomSeed:   3,
	}).Marshal())
	writeFrame(t, in, protocol.MessageInput, (&protocol.InputMessage{Value: []byte{}}).Marshal())
	_, err := m.Start(context.Background())
	require.NoError(t, err)
	return in, m
}

// Compile-time checks that facadeContext satisfies every capability
// interface simultaneously (spec §4.7's "single concrete state machine
// plus four narrow interface views").
var (
	_ StatelessContext      = (*facadeContext)(nil)
	_ SharedKeyedContext    = (*facadeContext)(nil)
	_ ExclusiveKeyedContext = (*facadeContext)(nil)
	_ WorkflowContext       = (*facadeContext)(nil)
	_ SharedWorkflowContext = (*facadeContext)(nil)
)

func writeFrame(t *testing.T, buf *bytes.Buffer, msgType protocol.MessageType, payload []byte) {
	t.Helper()
	w := protocol.NewWriter(buf)
	require.NoError(t, w.WriteFrame(msgType, 0, payload))
	require.NoError(t, w.Flush())
}

func newStartedMachine(t *testing.T) *invocation.Machine {
	t.Helper()
	in := &bytes.Buffer{}
	m := invocation.New(protocol.NewReader(in), protocol.NewWriter(&bytes.Buffer{}), invocation.Options{})
	writeFrame(t, in, protocol.MessageStart, (&protocol.StartMessage{
		InvocationID: []byte{0xAB},
		DebugID:      "inv-facade",
		Key:          "tenant-1",
		KnownEntries: 1,
		RandomSeed:   7,
		EagerState:   map[string][]byte{"seed": []byte("v0")},
	}).Marshal())
	writeFrame(t, in, protocol.MessageInput, (&protocol.InputMessage{
		Value:   []byte("payload"),
		Headers: map[string]string{"x-req": "1"},
	}).Marshal())
	_, err := m.Start(context.Background())
	require.NoError(t, err)
	return m
}

func TestFacadeDelegatesIdentityAccessors(t *testing.T) {
	m := newStartedMachine(t)
	fc := New(context.Background(), m)

	assert.Equal(t, "inv-facade", fc.InvocationID())
	assert.Equal(t, "tenant-1", fc.Key())
	assert.Equal(t, map[string]string{"x-req": "1"}, fc.Headers())
	assert.NotNil(t, fc.Rand())
	assert.NotNil(t, fc.Context())
}

func TestFacadeStateRoundTripsThroughMachine(t *testing.T) {
	m := newStartedMachine(t)
	fc := New(context.Background(), m)

	value, ok, err := fc.Get("seed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v0"), value)

	require.NoError(t, fc.Set("seed", []byte("v1")))
	value, ok, err = fc.Get("seed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, fc.Clear("seed"))
	_, ok, err = fc.Get("seed")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacadeAwakeableHandleAwaitsResolution(t *testing.T) {
	in, m := newStartedMachineWithInput(t)
	fc := New(context.Background(), m)

	handle, err := fc.Awakeable()
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)

	_, signalIdx, ok := invocation.DecodeAwakeableID(handle.ID)
	require.True(t, ok)

	// Queue the runtime's resolution notification before the activity
	// starts reading, the same way TestRunIncomingActivity... does in the
	// invocation package's own tests.
	writeFrame(t, in, protocol.NotificationSignal, (&protocol.SignalNotification{
		SignalIdx: signalIdx,
		Result:    protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("done")},
	}).Marshal())

	activityDone := make(chan error, 1)
	go func() { activityDone <- m.RunIncomingActivity(context.Background()) }()

	value, err := handle.Await()
	require.NoError(t, err)
	assert.Equal(t, []byte("done"), value)
	assert.NoError(t, <-activityDone)
}

func TestNewTerminalErrorFormatsCodeAndMessage(t *testing.T) {
	err := NewTerminalError(422, "bad input")
	assert.Equal(t, "terminal error 422: bad input", err.Error())
}
