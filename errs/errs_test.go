package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalErrorIsRecognized(t *testing.T) {
	err := NewTerminal(409, "conflict")
	assert.True(t, IsTerminal(err))
	assert.False(t, IsProtocol(err))
	assert.Equal(t, "terminal error 409: conflict", err.Error())
}

func TestTerminalErrorWrappedIsStillRecognized(t *testing.T) {
	wrapped := fmt.Errorf("calling handler: %w", NewTerminal(400, "bad request"))
	assert.True(t, IsTerminal(wrapped))
}

func TestProtocolErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("short read")
	err := WrapProtocol("reading frame", cause)
	assert.True(t, IsProtocol(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "short read")
}

func TestAsFailureMapsEachFamily(t *testing.T) {
	code, message := AsFailure(NewTerminal(422, "unprocessable"))
	assert.Equal(t, uint16(422), code)
	assert.Equal(t, "unprocessable", message)

	code, _ = AsFailure(NewProtocol("bad frame"))
	assert.Equal(t, uint16(571), code)

	code, message = AsFailure(errors.New("boom"))
	assert.Equal(t, uint16(500), code)
	assert.Equal(t, "boom", message)
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrCancelled, ErrClosed)
	assert.ErrorIs(t, ErrCancelled, ErrCancelled)
}
