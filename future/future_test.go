package future

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restate.dev/sdk-go-core/completion"
	"restate.dev/sdk-go-core/protocol"
)

func decodeString(r protocol.CompletionResult) (string, error) {
	return string(r.Value), nil
}

func TestDurableFutureAwait(t *testing.T) {
	mgr := completion.NewManager()
	r := mgr.GetOrRegister(1)
	f := New(r, decodeString)
	mgr.TryComplete(1, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("hi")})
	v, err := f.Await()
	require.NoError(t, err)
	assert.Equal(t, "hi", v)
}

func TestAllReturnsFirstFailure(t *testing.T) {
	mgr := completion.NewManager()
	r1 := mgr.GetOrRegister(1)
	r2 := mgr.GetOrRegister(2)
	f1 := New(r1, decodeString)
	f2 := New(r2, decodeString)
	mgr.TryComplete(1, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("ok")})
	mgr.TryFail(2, 500, "boom")

	err := All(f1, f2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRacePicksFirstResolved(t *testing.T) {
	mgr := completion.NewManager()
	r1 := mgr.GetOrRegister(1)
	r2 := mgr.GetOrRegister(2)
	f1 := New(r1, decodeString)
	f2 := New(r2, decodeString)
	mgr.TryComplete(2, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("second")})

	result, err := Race(f1, f2)
	require.NoError(t, err)
	assert.Equal(t, "second", string(result.Value))
}

func TestWaitAllYieldsEveryOutcome(t *testing.T) {
	mgr := completion.NewManager()
	r1 := mgr.GetOrRegister(1)
	r2 := mgr.GetOrRegister(2)
	r3 := mgr.GetOrRegister(3)
	f1 := New(r1, decodeString)
	f2 := New(r2, decodeString)
	f3 := New(r3, decodeString)

	mgr.TryComplete(2, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("b")})
	mgr.TryComplete(1, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: []byte("a")})
	mgr.TryFail(3, 500, "c failed")

	outcomes := WaitAll(f1, f2, f3)
	require.Len(t, outcomes, 3)
	seen := map[int]bool{}
	for _, o := range outcomes {
		seen[o.Index] = true
	}
	assert.True(t, seen[0] && seen[1] && seen[2])
}
