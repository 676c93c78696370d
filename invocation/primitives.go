package invocation

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"time"

	"restate.dev/sdk-go-core/completion"
	"restate.dev/sdk-go-core/errs"
	"restate.dev/sdk-go-core/journal"
	"restate.dev/sdk-go-core/protocol"
	"restate.dev/sdk-go-core/retry"
)

// --- Run side effect (spec §4.6.3 "Run side effect") ------------------------

// RunThunk is the user's side-effect closure. It receives only a
// cancellation context, never the façade, so it cannot issue nested
// primitives; no logger is passed to it. The façade's Run and RunRestricted
// both hand thunks this same context.
type RunThunk func(ctx context.Context) ([]byte, error)

// Run executes a named side effect exactly once across retries, journals its
// result, and replays the journaled result on subsequent attempts without
// re-executing the thunk.
func (m *Machine) Run(ctx context.Context, name string, policy retry.Policy, thunk RunThunk) ([]byte, error) {
	if err := m.requireOpen(); err != nil {
		return nil, err
	}

	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok {
			return nil, errs.NewProtocolf("replay exhausted awaiting Run %q", name)
		}
		if entry.Type != journal.EntryRun {
			return nil, errs.NewProtocolf("replay type mismatch at index %d: expected Run, got %v", idx, entry.Type)
		}
		r := m.journalCompletion.GetOrRegister(idx)
		result, err := r.Wait()
		if err != nil {
			return nil, err
		}
		if result.Kind == protocol.CompletionFailure {
			return nil, errs.NewTerminal(result.Failure.Code, result.Failure.Message)
		}
		return result.Value, nil
	}

	if err := m.writer.WriteFrame(protocol.MessageRun, 0, (&protocol.RunMessage{Name: name}).Marshal()); err != nil {
		return nil, err
	}
	if err := m.flush(); err != nil {
		return nil, err
	}

	start := time.Now()
	var value []byte
	thunkErr := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		v, err := thunk(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	m.metrics.RecordTimer("restate.invocation.run_duration", time.Since(start), "name", name)
	if thunkErr != nil {
		code, message := errs.AsFailure(thunkErr)
		m.metrics.IncCounter("restate.invocation.run_outcome", 1, "name", name, "outcome", "failure")
		if err := m.writer.WriteFrame(protocol.MessageProposeRunCompletion, 0,
			(&protocol.ProposeRunCompletionMessage{Failure: &protocol.Failure{Code: code, Message: message}}).Marshal()); err != nil {
			return nil, err
		}
		if err := m.flush(); err != nil {
			return nil, err
		}
		return nil, errs.NewTerminal(code, message)
	}

	m.metrics.IncCounter("restate.invocation.run_outcome", 1, "name", name, "outcome", "success")
	if err := m.writer.WriteFrame(protocol.MessageProposeRunCompletion, 0,
		(&protocol.ProposeRunCompletionMessage{Value: value}).Marshal()); err != nil {
		return nil, err
	}
	if err := m.flush(); err != nil {
		return nil, err
	}
	m.journal.Append(journal.Entry{Type: journal.EntryRun, State: journal.Completed, Name: name, Result: value})
	return value, nil
}

// --- Call / Send (spec §4.6.3 "Call", "Send") -------------------------------

// CallOptions configures a Call or Send.
type CallOptions struct {
	Key            string
	IdempotencyKey string
	Delay          time.Duration
}

// Call invokes another handler and blocks for its result. It reserves two
// journal slots: the auxiliary invocation-id slot and the result slot
// (spec invariant 2).
func (m *Machine) Call(ctx context.Context, service, handler string, request []byte, opts CallOptions) ([]byte, string, error) {
	if err := m.requireOpen(); err != nil {
		return nil, "", err
	}

	if m.isReplaying() {
		auxIdx, auxEntry, ok := m.journal.Replay()
		if !ok || auxEntry.Type != journal.EntryCall {
			return nil, "", errs.NewProtocolf("replay type mismatch at index %d: expected Call aux slot", auxIdx)
		}
		auxRendezvous := m.journalCompletion.GetOrRegister(auxIdx)

		resultIdx, resultEntry, ok := m.journal.Replay()
		if !ok || resultEntry.Type != journal.EntryCall {
			return nil, "", errs.NewProtocolf("replay type mismatch at index %d: expected Call result slot", resultIdx)
		}
		resultRendezvous := m.journalCompletion.GetOrRegister(resultIdx)

		idResult, err := auxRendezvous.Wait()
		if err != nil {
			return nil, "", err
		}
		result, err := resultRendezvous.Wait()
		if err != nil {
			return nil, "", err
		}
		if result.Kind == protocol.CompletionFailure {
			return nil, "", errs.NewTerminal(result.Failure.Code, result.Failure.Message)
		}
		return result.Value, idResult.InvocationID, nil
	}

	auxIdx := m.journal.Append(journal.Entry{Type: journal.EntryCall, State: journal.Pending})
	resultIdx := m.journal.Append(journal.Entry{Type: journal.EntryCall, State: journal.Pending, Name: service + "/" + handler})
	auxRendezvous := m.journalCompletion.GetOrRegister(auxIdx)
	resultRendezvous := m.journalCompletion.GetOrRegister(resultIdx)

	msg := &protocol.CallMessage{
		Service:                     service,
		Handler:                     handler,
		Key:                         opts.Key,
		Parameter:                   request,
		IdempotencyKey:              opts.IdempotencyKey,
		InvocationIDNotificationIdx: auxIdx,
	}
	if err := m.writer.WriteFrame(protocol.MessageCall, 0, msg.Marshal()); err != nil {
		return nil, "", err
	}
	if err := m.flush(); err != nil {
		return nil, "", err
	}

	idResult, err := auxRendezvous.Wait()
	if err != nil {
		return nil, "", err
	}
	result, err := resultRendezvous.Wait()
	if err != nil {
		return nil, "", err
	}
	if result.Kind == protocol.CompletionFailure {
		return nil, "", errs.NewTerminal(result.Failure.Code, result.Failure.Message)
	}
	return result.Value, idResult.InvocationID, nil
}

// Send fires a one-way call and returns its invocation handle once the
// invocation-id notification arrives, without waiting for the call's result.
func (m *Machine) Send(ctx context.Context, service, handler string, request []byte, opts CallOptions) (string, error) {
	if err := m.requireOpen(); err != nil {
		return "", err
	}

	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntryOneWayCall {
			return "", errs.NewProtocolf("replay type mismatch at index %d: expected OneWayCall", idx)
		}
		r := m.journalCompletion.GetOrRegister(idx)
		result, err := r.Wait()
		if err != nil {
			return "", err
		}
		return result.InvocationID, nil
	}

	idx := m.journal.Append(journal.Entry{Type: journal.EntryOneWayCall, State: journal.Pending, Name: service + "/" + handler})
	r := m.journalCompletion.GetOrRegister(idx)

	var invokeTime uint64
	if opts.Delay > 0 {
		invokeTime = uint64(time.Now().Add(opts.Delay).UnixMilli())
	}
	msg := &protocol.OneWayCallMessage{
		Service:                     service,
		Handler:                     handler,
		Key:                         opts.Key,
		Parameter:                   request,
		IdempotencyKey:              opts.IdempotencyKey,
		InvokeTime:                  invokeTime,
		InvocationIDNotificationIdx: idx,
	}
	if err := m.writer.WriteFrame(protocol.MessageOneWayCall, 0, msg.Marshal()); err != nil {
		return "", err
	}
	if err := m.flush(); err != nil {
		return "", err
	}
	result, err := r.Wait()
	if err != nil {
		return "", err
	}
	return result.InvocationID, nil
}

// --- Sleep / Timer (spec §4.6.3 "Sleep", "Timer") ---------------------------

// Sleep blocks until duration has elapsed, durably.
func (m *Machine) Sleep(ctx context.Context, duration time.Duration) error {
	r, err := m.timerRendezvous(duration)
	if err != nil {
		return err
	}
	_, err = r.Wait()
	return err
}

// TimerRendezvous exposes the non-blocking handle for Sleep, letting callers
// compose it with other futures via the future package.
func (m *Machine) TimerRendezvous(duration time.Duration) (*completion.Rendezvous, error) {
	return m.timerRendezvous(duration)
}

func (m *Machine) timerRendezvous(duration time.Duration) (*completion.Rendezvous, error) {
	if err := m.requireOpen(); err != nil {
		return nil, err
	}
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntrySleep {
			return nil, errs.NewProtocolf("replay type mismatch at index %d: expected Sleep", idx)
		}
		return m.journalCompletion.GetOrRegister(idx), nil
	}
	idx := m.journal.Append(journal.Entry{Type: journal.EntrySleep, State: journal.Pending})
	r := m.journalCompletion.GetOrRegister(idx)
	wakeUp := uint64(time.Now().Add(duration).UnixMilli())
	if err := m.writer.WriteFrame(protocol.MessageSleep, 0, (&protocol.SleepMessage{WakeUpTime: wakeUp}).Marshal()); err != nil {
		return nil, err
	}
	if err := m.flush(); err != nil {
		return nil, err
	}
	return r, nil
}

// --- Awakeable (spec §4.6.3 "Awakeable") ------------------------------------

// Awakeable allocates a new signal index and returns its wire id plus the
// rendezvous that resolves when the runtime routes a matching
// SignalNotification.
func (m *Machine) Awakeable() (id string, r *completion.Rendezvous, err error) {
	if err := m.requireOpen(); err != nil {
		return "", nil, err
	}
	m.mu.Lock()
	m.nextSignalIndex++
	idx := m.nextSignalIndex
	rawID := m.invocationID
	m.mu.Unlock()

	id = AwakeableID(rawID, idx)
	return id, m.signalCompletion.GetOrRegister(idx), nil
}

// AwakeableID computes the wire id for a given raw invocation id and signal
// index (spec §6 "Awakeable id format"): "sign_1" + base64url(no padding) of
// rawInvocationId || big-endian uint32(signalIndex).
func AwakeableID(rawInvocationID []byte, signalIndex uint32) string {
	buf := make([]byte, len(rawInvocationID)+4)
	copy(buf, rawInvocationID)
	binary.BigEndian.PutUint32(buf[len(rawInvocationID):], signalIndex)
	return "sign_1" + base64.RawURLEncoding.EncodeToString(buf)
}

// DecodeAwakeableID is the inverse of AwakeableID, used by the awakeable id
// round-trip test (spec §8 property 7) and by callers that need to validate an id's shape.
func DecodeAwakeableID(id string) (rawInvocationID []byte, signalIndex uint32, ok bool) {
	const prefix = "sign_1"
	if len(id) <= len(prefix) || id[:len(prefix)] != prefix {
		return nil, 0, false
	}
	buf, err := base64.RawURLEncoding.DecodeString(id[len(prefix):])
	if err != nil || len(buf) < 4 {
		return nil, 0, false
	}
	rawInvocationID = buf[:len(buf)-4]
	signalIndex = binary.BigEndian.Uint32(buf[len(buf)-4:])
	return rawInvocationID, signalIndex, true
}

// ResolveAwakeable completes an awakeable (possibly owned by another
// invocation) with a success value.
func (m *Machine) ResolveAwakeable(id string, value []byte) error {
	return m.completeAwakeable(id, value, nil)
}

// RejectAwakeable completes an awakeable with a failure.
func (m *Machine) RejectAwakeable(id string, code uint16, reason string) error {
	return m.completeAwakeable(id, nil, &protocol.Failure{Code: code, Message: reason})
}

func (m *Machine) completeAwakeable(id string, value []byte, failure *protocol.Failure) error {
	if err := m.requireOpen(); err != nil {
		return err
	}
	msg := &protocol.CompleteAwakeableMessage{ID: id, Value: value, Failure: failure}
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntryCompleteAwakeable {
			return errs.NewProtocolf("replay type mismatch at index %d: expected CompleteAwakeable", idx)
		}
		return nil
	}
	m.journal.Append(journal.Entry{Type: journal.EntryCompleteAwakeable, State: journal.Completed})
	if err := m.writer.WriteFrame(protocol.MessageCompleteAwakeable, 0, msg.Marshal()); err != nil {
		return err
	}
	return nil
}

// --- State (spec §4.6.3 "State") --------------------------------------------

// GetState reads a keyed state value. When eager state is available
// (partialState == false), it is served from memory with no command frame.
func (m *Machine) GetState(key string) ([]byte, bool, error) {
	if err := m.requireOpen(); err != nil {
		return nil, false, err
	}
	if !m.partialState {
		v, ok := m.initialState[key]
		return v, ok, nil
	}

	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntryGetState {
			return nil, false, errs.NewProtocolf("replay type mismatch at index %d: expected GetState", idx)
		}
		return m.awaitGetState(idx)
	}

	idx := m.journal.Append(journal.Entry{Type: journal.EntryGetState, State: journal.Pending, Name: key})
	if err := m.writer.WriteFrame(protocol.MessageGetState, 0, (&protocol.GetStateMessage{Key: key}).Marshal()); err != nil {
		return nil, false, err
	}
	if err := m.flush(); err != nil {
		return nil, false, err
	}
	return m.awaitGetState(idx)
}

func (m *Machine) awaitGetState(idx uint32) ([]byte, bool, error) {
	r := m.journalCompletion.GetOrRegister(idx)
	result, err := r.Wait()
	if err != nil {
		return nil, false, err
	}
	switch result.Kind {
	case protocol.CompletionVoid:
		return nil, false, nil
	case protocol.CompletionFailure:
		return nil, false, errs.NewTerminal(result.Failure.Code, result.Failure.Message)
	default:
		return result.Value, true, nil
	}
}

// SetState durably sets a keyed state value and updates the in-memory
// eager-state mirror so a subsequent Get in the same invocation observes it
// without a round-trip (spec invariant / testable property 6).
func (m *Machine) SetState(key string, value []byte) error {
	if err := m.requireOpen(); err != nil {
		return err
	}
	if m.initialState == nil {
		m.initialState = make(map[string][]byte)
	}
	m.initialState[key] = value
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntrySetState {
			return errs.NewProtocolf("replay type mismatch at index %d: expected SetState", idx)
		}
		return nil
	}
	m.journal.Append(journal.Entry{Type: journal.EntrySetState, State: journal.Completed, Name: key, Result: value})
	return m.writer.WriteFrame(protocol.MessageSetState, 0, (&protocol.SetStateMessage{Key: key, Value: value}).Marshal())
}

// ClearState durably clears a single keyed state value.
func (m *Machine) ClearState(key string) error {
	if err := m.requireOpen(); err != nil {
		return err
	}
	delete(m.initialState, key)
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntryClearState {
			return errs.NewProtocolf("replay type mismatch at index %d: expected ClearState", idx)
		}
		return nil
	}
	m.journal.Append(journal.Entry{Type: journal.EntryClearState, State: journal.Completed, Name: key})
	return m.writer.WriteFrame(protocol.MessageClearState, 0, (&protocol.ClearStateMessage{Key: key}).Marshal())
}

// ClearAllState durably clears every keyed state value.
func (m *Machine) ClearAllState() error {
	if err := m.requireOpen(); err != nil {
		return err
	}
	m.initialState = make(map[string][]byte)
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntryClearAllState {
			return errs.NewProtocolf("replay type mismatch at index %d: expected ClearAllState", idx)
		}
		return nil
	}
	m.journal.Append(journal.Entry{Type: journal.EntryClearAllState, State: journal.Completed})
	return m.writer.WriteFrame(protocol.MessageClearAllState, 0, nil)
}

// StateKeys returns the set of currently-set state keys.
func (m *Machine) StateKeys() ([]string, error) {
	if err := m.requireOpen(); err != nil {
		return nil, err
	}
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntryGetStateKeys {
			return nil, errs.NewProtocolf("replay type mismatch at index %d: expected GetStateKeys", idx)
		}
		return m.awaitStateKeys(idx)
	}
	idx := m.journal.Append(journal.Entry{Type: journal.EntryGetStateKeys, State: journal.Pending})
	if err := m.writer.WriteFrame(protocol.MessageGetStateKeys, 0, nil); err != nil {
		return nil, err
	}
	if err := m.flush(); err != nil {
		return nil, err
	}
	return m.awaitStateKeys(idx)
}

func (m *Machine) awaitStateKeys(idx uint32) ([]string, error) {
	r := m.journalCompletion.GetOrRegister(idx)
	result, err := r.Wait()
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := jsonUnmarshalStrings(result.Value, &keys); err != nil {
		return nil, errs.WrapProtocol("decoding state keys", err)
	}
	return keys, nil
}

// --- Promise (spec §4.6.3 "Promise", workflow-only) -------------------------

// GetPromise blocks until a named workflow promise resolves.
func (m *Machine) GetPromise(name string) ([]byte, error) {
	if err := m.requireOpen(); err != nil {
		return nil, err
	}
	idx, err := m.issueOrReplay(journal.EntryGetPromise, name, protocol.MessageGetPromise, (&protocol.GetPromiseMessage{Name: name}).Marshal())
	if err != nil {
		return nil, err
	}
	return m.awaitValueOrFailure(idx)
}

// PeekPromise reads a named workflow promise without blocking indefinitely;
// a void result means unset.
func (m *Machine) PeekPromise(name string) ([]byte, bool, error) {
	if err := m.requireOpen(); err != nil {
		return nil, false, err
	}
	idx, err := m.issueOrReplay(journal.EntryPeekPromise, name, protocol.MessagePeekPromise, (&protocol.PeekPromiseMessage{Name: name}).Marshal())
	if err != nil {
		return nil, false, err
	}
	return m.awaitGetState(idx)
}

// ResolvePromise resolves a named workflow promise with a success value.
func (m *Machine) ResolvePromise(name string, value []byte) error {
	return m.completePromise(name, value, nil)
}

// RejectPromise resolves a named workflow promise with a failure.
func (m *Machine) RejectPromise(name string, code uint16, reason string) error {
	return m.completePromise(name, nil, &protocol.Failure{Code: code, Message: reason})
}

func (m *Machine) completePromise(name string, value []byte, failure *protocol.Failure) error {
	if err := m.requireOpen(); err != nil {
		return err
	}
	msg := &protocol.CompletePromiseMessage{Name: name, Value: value, Failure: failure}
	idx, err := m.issueOrReplay(journal.EntryCompletePromise, name, protocol.MessageCompletePromise, msg.Marshal())
	if err != nil {
		return err
	}
	_, err = m.awaitValueOrFailure(idx)
	return err
}

// --- Attach / GetOutput (spec §4.6.3 "Attach / GetOutput") ------------------

// Attach blocks until the target invocation completes and returns its
// result.
func (m *Machine) Attach(targetInvocationID string) ([]byte, error) {
	if err := m.requireOpen(); err != nil {
		return nil, err
	}
	msg := &protocol.AttachInvocationMessage{TargetInvocationID: targetInvocationID}
	idx, err := m.issueOrReplay(journal.EntryAttachInvocation, "", protocol.MessageAttachInvocation, msg.Marshal())
	if err != nil {
		return nil, err
	}
	return m.awaitValueOrFailure(idx)
}

// GetInvocationOutput polls the target invocation's output without
// blocking indefinitely; ok is false if it has not completed yet.
func (m *Machine) GetInvocationOutput(targetInvocationID string) ([]byte, bool, error) {
	if err := m.requireOpen(); err != nil {
		return nil, false, err
	}
	msg := &protocol.GetInvocationOutputMessage{TargetInvocationID: targetInvocationID}
	idx, err := m.issueOrReplay(journal.EntryGetInvocationOutput, "", protocol.MessageGetInvocationOutput, msg.Marshal())
	if err != nil {
		return nil, false, err
	}
	return m.awaitGetState(idx)
}

// --- CancelInvocation (spec §4.6.3 "CancelInvocation") ----------------------

// CancelInvocation sends the runtime's built-in CANCEL signal (index 1) to
// the target invocation.
func (m *Machine) CancelInvocation(targetInvocationID string) error {
	if err := m.requireOpen(); err != nil {
		return err
	}
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != journal.EntrySendSignal {
			return errs.NewProtocolf("replay type mismatch at index %d: expected SendSignal", idx)
		}
		return nil
	}
	msg := &protocol.SendSignalMessage{TargetInvocationID: targetInvocationID, SignalIdx: cancelSignalIndex}
	m.journal.Append(journal.Entry{Type: journal.EntrySendSignal, State: journal.Completed})
	return m.writer.WriteFrame(protocol.MessageSendSignal, 0, msg.Marshal())
}

// --- terminal outcomes (spec §4.6.3 "Completion", "Terminal failure",
// "Transient failure") -------------------------------------------------------

// Complete emits the handler's successful output and closes the invocation.
// The value discriminator is always set, even for an empty/void result.
func (m *Machine) Complete(value []byte) error {
	m.metrics.IncCounter("restate.invocation.outcome", 1, "outcome", "success")
	return m.closeWith(&protocol.OutputMessage{HasValue: true, Value: value}, protocol.MessageOutput)
}

// TerminalFailure emits a non-retryable failure output and closes the
// invocation.
func (m *Machine) TerminalFailure(code uint16, message string) error {
	m.metrics.IncCounter("restate.invocation.outcome", 1, "outcome", "terminal_failure")
	return m.closeWith(&protocol.OutputMessage{Failure: &protocol.Failure{Code: code, Message: message}}, protocol.MessageOutput)
}

// TransientFailure emits a retryable Error frame and closes the invocation
// (the runtime will re-invoke from scratch).
func (m *Machine) TransientFailure(code uint16, message string) error {
	m.mu.Lock()
	if m.lifecycle == Closed {
		m.mu.Unlock()
		return errs.ErrClosed
	}
	m.mu.Unlock()
	m.metrics.IncCounter("restate.invocation.outcome", 1, "outcome", "transient_failure")
	if err := m.writer.WriteFrame(protocol.MessageError, 0, (&protocol.ErrorMessage{Code: code, Message: message}).Marshal()); err != nil {
		return err
	}
	return m.closeStream()
}

func (m *Machine) closeWith(out *protocol.OutputMessage, msgType protocol.MessageType) error {
	m.mu.Lock()
	if m.lifecycle == Closed {
		m.mu.Unlock()
		return errs.ErrClosed
	}
	m.mu.Unlock()
	if err := m.writer.WriteFrame(msgType, 0, out.Marshal()); err != nil {
		return err
	}
	return m.closeStream()
}

func (m *Machine) closeStream() error {
	if err := m.writer.WriteHeaderOnly(protocol.MessageEnd, 0); err != nil {
		return err
	}
	if err := m.flush(); err != nil {
		return err
	}
	m.mu.Lock()
	m.lifecycle = Closed
	m.mu.Unlock()
	return nil
}

// Shutdown cancels every pending rendezvous, for use during teardown after
// an unrecoverable stream break (spec §4.5 "cancel_all").
func (m *Machine) Shutdown() {
	m.journalCompletion.CancelAll()
	m.signalCompletion.CancelAll()
	m.mu.Lock()
	m.lifecycle = Closed
	m.mu.Unlock()
}

// issueOrReplay is the shared shape behind the simpler completion-bearing
// primitives (Promise/Attach/GetOutput): during replay, consume the next
// pre-known entry at the cursor; otherwise append a fresh one and write the
// command frame.
func (m *Machine) issueOrReplay(entryType journal.EntryType, name string, msgType protocol.MessageType, payload []byte) (uint32, error) {
	if m.isReplaying() {
		idx, entry, ok := m.journal.Replay()
		if !ok || entry.Type != entryType {
			return 0, errs.NewProtocolf("replay type mismatch at index %d: expected %v", idx, entryType)
		}
		return idx, nil
	}
	idx := m.journal.Append(journal.Entry{Type: entryType, State: journal.Pending, Name: name})
	if err := m.writer.WriteFrame(msgType, 0, payload); err != nil {
		return 0, err
	}
	if err := m.flush(); err != nil {
		return 0, err
	}
	return idx, nil
}

func (m *Machine) awaitValueOrFailure(idx uint32) ([]byte, error) {
	r := m.journalCompletion.GetOrRegister(idx)
	result, err := r.Wait()
	if err != nil {
		return nil, err
	}
	if result.Kind == protocol.CompletionFailure {
		return nil, errs.NewTerminal(result.Failure.Code, result.Failure.Message)
	}
	return result.Value, nil
}
