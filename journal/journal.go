// Package journal implements the append-only indexed log of typed entries an
// invocation consults during replay (spec §4.4). The journal stores only the
// shape of the log — entry type and completion state — never a completion's
// result payload, which lives in the completion manager's rendezvous
// instead.
package journal

import "sync"

// EntryType identifies the kind of operation a journal entry represents,
// mirroring the command vocabulary of the wire protocol.
type EntryType int

const (
	EntryInput EntryType = iota
	EntryOutput
	EntryRun
	EntryCall
	EntryOneWayCall
	EntrySleep
	EntryGetState
	EntrySetState
	EntryClearState
	EntryClearAllState
	EntryGetStateKeys
	EntryGetPromise
	EntryPeekPromise
	EntryCompletePromise
	EntryCompleteAwakeable
	EntrySendSignal
	EntryAttachInvocation
	EntryGetInvocationOutput
)

// State is an entry's completion state.
type State int

const (
	Pending State = iota
	Completed
)

// Entry is one journal record. Result is populated only when State ==
// Completed and only for entries whose value the journal itself needs to
// replay locally (the Input entry's input bytes, Run's locally-produced
// result, and the synthetic entries written by Set/Clear/ClearAll); completions that arrive from a
// notification are not copied into the entry — the completion manager's
// rendezvous is the source of truth for those.
type Entry struct {
	Type   EntryType
	State  State
	Name   string
	Result []byte
}

// Journal is a dense, append-only sequence of entries, plus a separate read
// cursor that tracks how much of the pre-known log a replaying handler has
// consumed so far.
//
// The start handshake (spec §4.6.2 step 3) fully materializes every entry
// the runtime already recorded — up to KnownEntries — via Preload, before
// the handler ever runs. The handler then consumes those entries one at a
// time, in order, via Replay; once the cursor catches KnownEntries (spec
// §4.6.5), subsequent primitive calls switch to live execution and grow the
// log further via Append. Preload and Append both extend the underlying
// slice; only Replay/Append advance the read cursor that IsReplaying
// consults — Preload deliberately does not, since the handler hasn't
// consumed those entries yet.
type Journal struct {
	mu           sync.RWMutex
	entries      []Entry
	cursor       uint32
	knownEntries uint32
}

// New constructs an empty journal.
func New() *Journal {
	return &Journal{}
}

// Initialize sets the replay budget: the number of entries the runtime has
// already durably recorded for this invocation (spec §4.4 "initialize").
func (j *Journal) Initialize(knownEntries uint32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.knownEntries = knownEntries
}

// Preload appends an entry without advancing the read cursor, for use while
// the start handshake is reconstructing the pre-known log (spec §4.6.2).
func (j *Journal) Preload(e Entry) uint32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	idx := uint32(len(j.entries))
	j.entries = append(j.entries, e)
	return idx
}

// SkipCursorTo sets the read cursor directly, used once after preloading the
// Input entry (index 0), which no primitive ever replays.
func (j *Journal) SkipCursorTo(cursor uint32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cursor = cursor
}

// Replay returns the next pre-known entry at the current cursor and
// advances it, for a primitive executing during replay. ok is false once the
// cursor has caught up to KnownEntries — the caller must switch to Append.
func (j *Journal) Replay() (idx uint32, entry Entry, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cursor >= j.knownEntries {
		return 0, Entry{}, false
	}
	idx = j.cursor
	entry = j.entries[idx]
	j.cursor++
	return idx, entry, true
}

// Append adds a freshly-issued entry (live execution) and returns the index
// it occupies. It also advances the cursor to match, since a live-appended
// entry is immediately "consumed" by the call that issued it.
func (j *Journal) Append(e Entry) uint32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	idx := uint32(len(j.entries))
	j.entries = append(j.entries, e)
	j.cursor = uint32(len(j.entries))
	return idx
}

// At returns the entry at index i and whether it exists.
func (j *Journal) At(i uint32) (Entry, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if int(i) >= len(j.entries) {
		return Entry{}, false
	}
	return j.entries[i], true
}

// Len returns the number of entries recorded so far (preloaded + appended).
func (j *Journal) Len() uint32 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return uint32(len(j.entries))
}

// KnownEntries returns the replay budget set by Initialize.
func (j *Journal) KnownEntries() uint32 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.knownEntries
}

// IsReplaying reports whether the read cursor has not yet caught up to the
// known-entries budget (spec §4.4 "is_replaying").
func (j *Journal) IsReplaying() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.cursor < j.knownEntries
}
