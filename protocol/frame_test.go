package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	h := EncodeHeader(MessageCall, FlagRequiresAck, 128)
	ty, flags, length, err := DecodeHeader(h[:])
	require.NoError(t, err)
	assert.Equal(t, MessageCall, ty)
	assert.Equal(t, FlagRequiresAck, flags)
	assert.Equal(t, uint32(128), length)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	payload := (&GetStateMessage{Key: "counter"}).Marshal()
	require.NoError(t, w.WriteFrame(MessageGetState, 0, payload))
	require.NoError(t, w.WriteHeaderOnly(MessageEnd, 0))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)

	f1, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, MessageGetState, f1.Type)
	msg, err := UnmarshalGetState(f1.Payload)
	require.NoError(t, err)
	assert.Equal(t, "counter", msg.Key)

	f2, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, MessageEnd, f2.Type)
	assert.Empty(t, f2.Payload)

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderCleanEOFAtBoundary(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderIncompleteHeader(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x04, 0x00, 0x00}))
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, ErrIncompleteFrame)
}

func TestReaderIncompletePayload(t *testing.T) {
	header := EncodeHeader(MessageGetState, 0, 10)
	var buf bytes.Buffer
	buf.Write(header[:])
	buf.Write([]byte{1, 2, 3}) // short of the declared 10 bytes
	r := NewReader(&buf)
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, ErrIncompleteFrame)
}

func TestMessageTypeBandClassification(t *testing.T) {
	assert.True(t, MessageStart.IsControl())
	assert.False(t, MessageStart.IsCommand())
	assert.True(t, MessageGetState.IsCommand())
	assert.False(t, MessageGetState.IsNotification())
	assert.True(t, NotificationGetState.IsNotification())
	assert.False(t, NotificationGetState.IsCommand())
}
