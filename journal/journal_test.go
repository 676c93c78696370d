package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadThenReplayConsumesInOrder(t *testing.T) {
	j := New()
	j.Initialize(3)

	idx0 := j.Preload(Entry{Type: EntryInput, State: Completed})
	assert.Equal(t, uint32(0), idx0)
	j.SkipCursorTo(1)

	idx1 := j.Preload(Entry{Type: EntryRun, State: Pending, Name: "step-a"})
	idx2 := j.Preload(Entry{Type: EntrySleep, State: Pending})
	assert.Equal(t, uint32(1), idx1)
	assert.Equal(t, uint32(2), idx2)

	assert.True(t, j.IsReplaying())

	idx, entry, ok := j.Replay()
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)
	assert.Equal(t, EntryRun, entry.Type)
	assert.Equal(t, "step-a", entry.Name)
	assert.True(t, j.IsReplaying())

	idx, entry, ok = j.Replay()
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx)
	assert.Equal(t, EntrySleep, entry.Type)
	assert.False(t, j.IsReplaying())

	_, _, ok = j.Replay()
	assert.False(t, ok)
}

func TestAppendAdvancesCursorImmediately(t *testing.T) {
	j := New()
	j.Initialize(0)

	idx := j.Append(Entry{Type: EntryRun, State: Completed, Name: "live-step"})
	assert.Equal(t, uint32(0), idx)
	assert.False(t, j.IsReplaying())
	assert.Equal(t, uint32(1), j.Len())

	entry, ok := j.At(0)
	require.True(t, ok)
	assert.Equal(t, "live-step", entry.Name)
}

func TestIsReplayingFalseWhenNoKnownEntries(t *testing.T) {
	j := New()
	j.Initialize(0)
	assert.False(t, j.IsReplaying())
}

func TestAtOutOfRange(t *testing.T) {
	j := New()
	_, ok := j.At(0)
	assert.False(t, ok)
}
