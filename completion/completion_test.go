package completion

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restate.dev/sdk-go-core/errs"
	"restate.dev/sdk-go-core/protocol"
)

func TestManagerCompleteBeforeWait(t *testing.T) {
	m := NewManager()
	m.TryComplete(5, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("hi")})

	r := m.GetOrRegister(5)
	result, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), result.Value)
}

func TestManagerWaitBeforeComplete(t *testing.T) {
	m := NewManager()
	r := m.GetOrRegister(7)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		m.TryComplete(7, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("later")})
	}()

	result, err := r.Wait()
	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, []byte("later"), result.Value)
}

func TestManagerFailDeliversTerminalError(t *testing.T) {
	m := NewManager()
	r := m.GetOrRegister(1)
	m.TryFail(1, 409, "conflict")

	_, err := r.Wait()
	require.Error(t, err)
	assert.True(t, errs.IsTerminal(err))
}

func TestResolveOnceIgnoresSecondCall(t *testing.T) {
	m := NewManager()
	r := m.GetOrRegister(2)
	m.TryComplete(2, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("first")})
	m.TryComplete(2, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("second")})

	result, err := r.Wait()
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), result.Value)
}

func TestCancelAllResolvesPendingWithCancelled(t *testing.T) {
	m := NewManager()
	r1 := m.GetOrRegister(1)
	r2 := m.GetOrRegister(2)

	m.CancelAll()

	_, err1 := r1.Wait()
	_, err2 := r2.Wait()
	assert.ErrorIs(t, err1, errs.ErrCancelled)
	assert.ErrorIs(t, err2, errs.ErrCancelled)
}

func TestPeekReportsPendingUntilResolved(t *testing.T) {
	m := NewManager()
	r := m.GetOrRegister(3)

	_, _, done := r.Peek()
	assert.False(t, done)

	m.TryComplete(3, protocol.CompletionResult{Kind: protocol.CompletionVoid})
	_, err, done := r.Peek()
	require.True(t, done)
	assert.NoError(t, err)
}
