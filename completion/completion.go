// Package completion implements the one-shot rendezvous objects a handler
// awaits and the incoming-notification activity resolves (spec §4.5). Two
// independent Manager instances exist per invocation: one keyed by journal
// index (for completion-bearing commands) and one keyed by signal index
// (for awakeables and the built-in cancel signal).
package completion

import (
	"sync"

	"restate.dev/sdk-go-core/errs"
	"restate.dev/sdk-go-core/protocol"
)

// Rendezvous is a one-shot awaitable. Exactly one of Wait's return values is
// meaningful: a successful CompletionResult, or a non-nil error (a
// *errs.TerminalError for a carried Failure, or errs.ErrCancelled).
type Rendezvous struct {
	done   chan struct{}
	once   sync.Once
	result protocol.CompletionResult
	err    error
}

func newRendezvous() *Rendezvous {
	return &Rendezvous{done: make(chan struct{})}
}

// Wait blocks until the rendezvous resolves, returning its result or error.
// Safe to call more than once; every caller after the first resolution sees
// the same outcome immediately.
func (r *Rendezvous) Wait() (protocol.CompletionResult, error) {
	<-r.done
	return r.result, r.err
}

// Done returns a channel closed once the rendezvous resolves, for callers
// that need to select over multiple rendezvous (the future combinators).
func (r *Rendezvous) Done() <-chan struct{} {
	return r.done
}

// Peek returns the resolved outcome without blocking, and whether the
// rendezvous has resolved yet.
func (r *Rendezvous) Peek() (protocol.CompletionResult, error, bool) {
	select {
	case <-r.done:
		return r.result, r.err, true
	default:
		return protocol.CompletionResult{}, nil, false
	}
}

func (r *Rendezvous) resolve(result protocol.CompletionResult, err error) {
	r.once.Do(func() {
		r.result = result
		r.err = err
		close(r.done)
	})
}

// Manager maps a numeric index to its Rendezvous. It is safe for concurrent
// use: per spec §5, the handler activity calls GetOrRegister while the
// incoming-notification activity calls TryComplete/TryFail, and both may run
// on different goroutines even though they never mutate the same index
// concurrently in practice.
type Manager struct {
	mu    sync.Mutex
	slots map[uint32]*Rendezvous
}

// NewManager constructs an empty completion Manager.
func NewManager() *Manager {
	return &Manager{slots: make(map[uint32]*Rendezvous)}
}

// GetOrRegister returns the Rendezvous for idx, creating it on first call.
// Idempotent: repeated calls with the same idx return the same object.
func (m *Manager) GetOrRegister(idx uint32) *Rendezvous {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.slots[idx]; ok {
		return r
	}
	r := newRendezvous()
	m.slots[idx] = r
	return r
}

// TryComplete resolves idx's rendezvous with a successful result. A no-op if
// the rendezvous was already resolved. If idx was never registered (the
// notification arrived for a slot nothing is currently awaiting), it
// registers a pre-resolved rendezvous so a later GetOrRegister observes it
// immediately, matching replay's "completed entry" shape.
func (m *Manager) TryComplete(idx uint32, result protocol.CompletionResult) {
	m.getOrRegisterLocked(idx).resolve(result, nil)
}

// TryFail resolves idx's rendezvous as a terminal failure.
func (m *Manager) TryFail(idx uint32, code uint16, message string) {
	m.getOrRegisterLocked(idx).resolve(protocol.CompletionResult{}, errs.NewTerminal(code, message))
}

func (m *Manager) getOrRegisterLocked(idx uint32) *Rendezvous {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.slots[idx]; ok {
		return r
	}
	r := newRendezvous()
	m.slots[idx] = r
	return r
}

// CancelAll resolves every pending rendezvous with errs.ErrCancelled. Called
// once at teardown; already-resolved rendezvous are unaffected.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.slots {
		r.resolve(protocol.CompletionResult{}, errs.ErrCancelled)
	}
}
