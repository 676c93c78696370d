package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMessageRoundTrip(t *testing.T) {
	in := &StartMessage{
		InvocationID: []byte{0x01, 0x02, 0x03},
		DebugID:      "inv_abc123",
		Key:          "tenant-42",
		KnownEntries: 7,
		RandomSeed:   0xdeadbeef,
		PartialState: false,
		EagerState:   map[string][]byte{"count": []byte("3")},
	}

	out, err := UnmarshalStart(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in.InvocationID, out.InvocationID)
	assert.Equal(t, in.DebugID, out.DebugID)
	assert.Equal(t, in.Key, out.Key)
	assert.Equal(t, in.KnownEntries, out.KnownEntries)
	assert.Equal(t, in.RandomSeed, out.RandomSeed)
	assert.Equal(t, in.PartialState, out.PartialState)
	assert.Equal(t, in.EagerState, out.EagerState)
}

func TestInputMessageRoundTrip(t *testing.T) {
	in := &InputMessage{
		Value:   []byte(`{"x":1}`),
		Headers: map[string]string{"content-type": "application/json"},
	}
	out, err := UnmarshalInput(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in.Value, out.Value)
	assert.Equal(t, in.Headers, out.Headers)
}

func TestOutputMessageValueRoundTrip(t *testing.T) {
	in := &OutputMessage{HasValue: true, Value: []byte{}}
	out, err := UnmarshalOutput(in.Marshal())
	require.NoError(t, err)
	assert.True(t, out.HasValue)
	assert.Equal(t, []byte{}, out.Value)
	assert.Nil(t, out.Failure)
}

func TestOutputMessageFailureRoundTrip(t *testing.T) {
	in := &OutputMessage{Failure: &Failure{Code: 500, Message: "boom"}}
	out, err := UnmarshalOutput(in.Marshal())
	require.NoError(t, err)
	assert.False(t, out.HasValue)
	require.NotNil(t, out.Failure)
	assert.Equal(t, uint16(500), out.Failure.Code)
	assert.Equal(t, "boom", out.Failure.Message)
}

func TestCallMessageRoundTrip(t *testing.T) {
	in := &CallMessage{
		Service:                     "Greeter",
		Handler:                     "greet",
		Key:                         "bob",
		Parameter:                   []byte("hi"),
		Headers:                     map[string]string{"x-trace": "1"},
		IdempotencyKey:              "idem-1",
		InvocationIDNotificationIdx: 3,
	}
	out, err := UnmarshalCall(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in.Service, out.Service)
	assert.Equal(t, in.Handler, out.Handler)
	assert.Equal(t, in.Key, out.Key)
	assert.Equal(t, in.Parameter, out.Parameter)
	assert.Equal(t, in.Headers, out.Headers)
	assert.Equal(t, in.IdempotencyKey, out.IdempotencyKey)
	assert.Equal(t, in.InvocationIDNotificationIdx, out.InvocationIDNotificationIdx)
}

func TestCompletionNotificationValueRoundTrip(t *testing.T) {
	in := &CompletionNotification{
		CompletionID: 4,
		Result:       CompletionResult{Kind: CompletionValue, Value: []byte("done")},
	}
	out, err := UnmarshalCompletionNotification(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in.CompletionID, out.CompletionID)
	assert.Equal(t, CompletionValue, out.Result.Kind)
	assert.Equal(t, []byte("done"), out.Result.Value)
}

func TestCompletionNotificationFailureRoundTrip(t *testing.T) {
	in := &CompletionNotification{
		CompletionID: 2,
		Result:       CompletionResult{Kind: CompletionFailure, Failure: Failure{Code: 13, Message: "internal"}},
	}
	out, err := UnmarshalCompletionNotification(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, CompletionFailure, out.Result.Kind)
	assert.Equal(t, uint16(13), out.Result.Failure.Code)
	assert.Equal(t, "internal", out.Result.Failure.Message)
}

func TestCompletionNotificationStateKeysRoundTrip(t *testing.T) {
	in := &CompletionNotification{
		CompletionID: 1,
		Result:       CompletionResult{Kind: CompletionStateKeys, StateKeys: []string{"a", "b", "c"}},
	}
	out, err := UnmarshalCompletionNotification(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.Result.StateKeys)
}

func TestSignalNotificationRoundTrip(t *testing.T) {
	in := &SignalNotification{
		SignalIdx: 1,
		Result:    CompletionResult{Kind: CompletionVoid},
	}
	out, err := UnmarshalSignalNotification(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in.SignalIdx, out.SignalIdx)
	assert.Equal(t, CompletionVoid, out.Result.Kind)
}

func TestSendSignalMessageRoundTrip(t *testing.T) {
	in := &SendSignalMessage{TargetInvocationID: "inv_123", SignalIdx: 1}
	out, err := UnmarshalSendSignal(in.Marshal())
	require.NoError(t, err)
	assert.Equal(t, in.TargetInvocationID, out.TargetInvocationID)
	assert.Equal(t, in.SignalIdx, out.SignalIdx)
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	// A message with a field number this decoder doesn't recognize should
	// still parse the fields it does know about.
	b := appendVarint(nil, 99, 42)
	b = appendStr(b, fGetStateKey, "mykey")
	out, err := UnmarshalGetState(b)
	require.NoError(t, err)
	assert.Equal(t, "mykey", out.Key)
}
