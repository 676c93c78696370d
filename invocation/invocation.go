// Package invocation implements the per-invocation state machine (spec
// §4.6): the orchestrator that owns the journal, the two completion
// managers, the protocol reader/writer, and the lifecycle, and that exposes
// every durable primitive a handler can call.
package invocation

import (
	"context"
	"math/rand"
	"sync"

	"restate.dev/sdk-go-core/completion"
	"restate.dev/sdk-go-core/errs"
	"restate.dev/sdk-go-core/journal"
	"restate.dev/sdk-go-core/protocol"
	"restate.dev/sdk-go-core/telemetry"
)

// Lifecycle is the invocation's coarse-grained state (spec §4.6.1).
type Lifecycle int

const (
	WaitingStart Lifecycle = iota
	Replaying
	Processing
	Closed
)

func (l Lifecycle) String() string {
	switch l {
	case WaitingStart:
		return "WaitingStart"
	case Replaying:
		return "Replaying"
	case Processing:
		return "Processing"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// cancelSignalIndex is the runtime's well-known built-in signal index for
// CancelInvocation (spec §4.6.3 "CancelInvocation").
const cancelSignalIndex = 1

// Machine is the invocation state machine. One Machine is constructed per
// invocation and discarded at Close.
type Machine struct {
	mu sync.Mutex

	lifecycle Lifecycle

	journal           *journal.Journal
	journalCompletion *completion.Manager
	signalCompletion  *completion.Manager

	reader *protocol.Reader
	writer *protocol.Writer

	invocationID    []byte
	debugID         string
	key             string
	randomSeed      uint64
	rng             *rand.Rand
	initialState    map[string][]byte
	partialState    bool
	headers         map[string]string
	nextSignalIndex uint32

	loggedProcessing bool

	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
}

// Options configures a new Machine.
type Options struct {
	Logger  telemetry.Logger
	Tracer  telemetry.Tracer
	Metrics telemetry.Metrics
}

// New constructs a Machine in WaitingStart over the given reader/writer.
func New(r *protocol.Reader, w *protocol.Writer, opts Options) *Machine {
	if opts.Logger == nil {
		opts.Logger = telemetry.NoopLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NoopTracer{}
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NoopMetrics{}
	}
	return &Machine{
		lifecycle:         WaitingStart,
		journal:           journal.New(),
		journalCompletion: completion.NewManager(),
		signalCompletion:  completion.NewManager(),
		reader:            r,
		writer:            w,
		logger:            opts.Logger,
		tracer:            opts.Tracer,
		metrics:           opts.Metrics,
	}
}

// Lifecycle returns the machine's current state.
func (m *Machine) Lifecycle() Lifecycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lifecycle
}

// InvocationID returns the debug invocation id (set after Start).
func (m *Machine) InvocationID() string { return m.debugID }

// RawInvocationID returns the raw invocation id bytes used to derive
// awakeable ids.
func (m *Machine) RawInvocationID() []byte { return m.invocationID }

// Key returns the keyed invocation's key, or "" for stateless/unkeyed.
func (m *Machine) Key() string { return m.key }

// Headers returns the Input frame's headers.
func (m *Machine) Headers() map[string]string { return m.headers }

// Rand returns the invocation-seeded deterministic PRNG. Using it instead of
// the global math/rand keeps random draws replay-stable.
func (m *Machine) Rand() *rand.Rand { return m.rng }

// StartResult is everything the driver needs after the handshake completes
// (spec §4.6.2 step 4).
type StartResult struct {
	InvocationID string
	Key          string
	KnownEntries uint32
	RandomSeed   uint64
	Input        []byte
	Headers      map[string]string
}

// Start performs the start handshake (spec §4.6.2): reads Start, then Input,
// then replays any further frames up to knownEntries.
func (m *Machine) Start(ctx context.Context) (StartResult, error) {
	m.mu.Lock()
	if m.lifecycle != WaitingStart {
		m.mu.Unlock()
		return StartResult{}, errs.NewProtocolf("Start called twice (lifecycle=%s)", m.lifecycle)
	}
	m.mu.Unlock()

	startFrame, err := m.reader.ReadFrame()
	if err != nil {
		return StartResult{}, errs.WrapProtocol("reading Start frame", err)
	}
	if startFrame.Type != protocol.MessageStart {
		return StartResult{}, errs.NewProtocolf("expected Start frame, got type %d", startFrame.Type)
	}
	start, err := protocol.UnmarshalStart(startFrame.Payload)
	if err != nil {
		return StartResult{}, errs.WrapProtocol("decoding Start frame", err)
	}

	m.mu.Lock()
	m.invocationID = start.InvocationID
	m.debugID = start.DebugID
	m.key = start.Key
	m.randomSeed = start.RandomSeed
	m.rng = rand.New(rand.NewSource(int64(start.RandomSeed))) //nolint:gosec // deterministic replay, not security-sensitive
	m.partialState = start.PartialState
	if !start.PartialState {
		m.initialState = start.EagerState
		if m.initialState == nil {
			m.initialState = make(map[string][]byte)
		}
	}
	m.journal.Initialize(start.KnownEntries)
	m.lifecycle = Replaying
	scope := telemetry.NewInvocationScope(m.logger, m.metrics, m.tracer, m.debugID, m.key)
	m.logger, m.metrics, m.tracer = scope.Logger, scope.Metrics, scope.Tracer
	m.mu.Unlock()

	inputFrame, err := m.reader.ReadFrame()
	if err != nil {
		return StartResult{}, errs.WrapProtocol("reading Input frame", err)
	}
	if inputFrame.Type != protocol.MessageInput {
		return StartResult{}, errs.NewProtocolf("expected Input frame, got type %d", inputFrame.Type)
	}
	input, err := protocol.UnmarshalInput(inputFrame.Payload)
	if err != nil {
		return StartResult{}, errs.WrapProtocol("decoding Input frame", err)
	}
	m.headers = input.Headers
	// The Input entry always occupies index 0 and is never re-consulted by a
	// primitive during replay, so the read cursor skips straight past it.
	m.journal.Preload(journal.Entry{Type: journal.EntryInput, State: journal.Completed, Result: input.Value})
	m.journal.SkipCursorTo(1)

	if err := m.replayRemainder(ctx, start.KnownEntries); err != nil {
		return StartResult{}, err
	}
	m.checkTransitionToProcessing()

	return StartResult{
		InvocationID: m.debugID,
		Key:          m.key,
		KnownEntries: start.KnownEntries,
		RandomSeed:   m.randomSeed,
		Input:        input.Value,
		Headers:      m.headers,
	}, nil
}

// replayRemainder consumes the knownEntries-1 frames that follow Input,
// synthesizing journal entries from command frames and routing notification
// frames to the appropriate completion manager (spec §4.6.2 step 3). The
// handler has not started running yet at this point, so this fully
// materializes the pre-known log rather than advancing the handler's own
// read cursor (that happens later, in Replay, as primitives run). Since a
// Call preloads two entries and a notification or ProposeRunCompletion
// preloads none, the journal's replay budget is then reset to the number of
// entries actually materialized.
func (m *Machine) replayRemainder(ctx context.Context, knownEntries uint32) error {
	var pendingRunIdx uint32
	havePendingRun := false
	for read := uint32(1); read < knownEntries; read++ {
		frame, err := m.reader.ReadFrame()
		if err != nil {
			return errs.WrapProtocol("reading replay frame", err)
		}
		if frame.Type == protocol.MessageProposeRunCompletion {
			// A Run's completion is self-reported by the SDK's own prior
			// execution rather than by the runtime, so it arrives as this
			// Control-band frame immediately after its RunCommand (spec §8
			// Concrete End-to-End Scenario #2) rather than as a notification.
			if !havePendingRun {
				return errs.NewProtocolf("ProposeRunCompletion with no outstanding Run during replay")
			}
			if err := m.resolveProposedRun(pendingRunIdx, frame); err != nil {
				return err
			}
			havePendingRun = false
			continue
		}
		if frame.Type.IsNotification() {
			if err := m.routeNotification(frame); err != nil {
				return err
			}
			continue
		}
		if !frame.Type.IsCommand() {
			// Control frames (EntryAck etc.) interleaved during replay are
			// ignored; they carry no journal shape.
			continue
		}
		idx, err := m.synthesizeFromCommand(frame)
		if err != nil {
			return err
		}
		if frame.Type == protocol.MessageRun {
			pendingRunIdx = idx
			havePendingRun = true
		}
	}
	m.journal.Initialize(m.journal.Len())
	return nil
}

// resolveProposedRun decodes a replayed ProposeRunCompletion frame and
// resolves the journal-completion rendezvous at idx, the Run entry preloaded
// for the RunCommand it pairs with.
func (m *Machine) resolveProposedRun(idx uint32, frame protocol.Frame) error {
	proposed, err := protocol.UnmarshalProposeRunCompletion(frame.Payload)
	if err != nil {
		return errs.WrapProtocol("decoding replayed ProposeRunCompletion", err)
	}
	if proposed.Failure != nil {
		m.journalCompletion.TryFail(idx, proposed.Failure.Code, proposed.Failure.Message)
		return nil
	}
	m.journalCompletion.TryComplete(idx, protocol.CompletionResult{Kind: protocol.CompletionValue, Value: proposed.Value})
	return nil
}

// synthesizeFromCommand appends the journal entry (or, for Call, the two
// entries) that a replayed command frame represents (spec §4.6.2 step 3,
// invariant 2), returning the index of the primary entry it preloaded.
func (m *Machine) synthesizeFromCommand(frame protocol.Frame) (uint32, error) {
	switch frame.Type {
	case protocol.MessageRun:
		msg, err := protocol.UnmarshalRun(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed Run", err)
		}
		idx := m.journal.Preload(journal.Entry{Type: journal.EntryRun, State: journal.Pending, Name: msg.Name})
		return idx, nil
	case protocol.MessageCall:
		msg, err := protocol.UnmarshalCall(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed Call", err)
		}
		auxIdx := m.journal.Preload(journal.Entry{Type: journal.EntryCall, State: journal.Completed})
		m.journalCompletion.GetOrRegister(auxIdx)
		idx := m.journal.Preload(journal.Entry{Type: journal.EntryCall, State: journal.Pending, Name: msg.Service + "/" + msg.Handler})
		return idx, nil
	case protocol.MessageOneWayCall:
		msg, err := protocol.UnmarshalOneWayCall(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed Send", err)
		}
		idx := m.journal.Preload(journal.Entry{Type: journal.EntryOneWayCall, State: journal.Pending, Name: msg.Service + "/" + msg.Handler})
		return idx, nil
	case protocol.MessageSleep:
		return m.journal.Preload(journal.Entry{Type: journal.EntrySleep, State: journal.Pending}), nil
	case protocol.MessageGetState:
		msg, err := protocol.UnmarshalGetState(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed GetState", err)
		}
		return m.journal.Preload(journal.Entry{Type: journal.EntryGetState, State: journal.Pending, Name: msg.Key}), nil
	case protocol.MessageSetState:
		msg, err := protocol.UnmarshalSetState(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed SetState", err)
		}
		idx := m.journal.Preload(journal.Entry{Type: journal.EntrySetState, State: journal.Completed, Name: msg.Key, Result: msg.Value})
		if m.initialState != nil {
			m.initialState[msg.Key] = msg.Value
		}
		return idx, nil
	case protocol.MessageClearState:
		msg, err := protocol.UnmarshalClearState(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed ClearState", err)
		}
		idx := m.journal.Preload(journal.Entry{Type: journal.EntryClearState, State: journal.Completed, Name: msg.Key})
		if m.initialState != nil {
			delete(m.initialState, msg.Key)
		}
		return idx, nil
	case protocol.MessageClearAllState:
		idx := m.journal.Preload(journal.Entry{Type: journal.EntryClearAllState, State: journal.Completed})
		m.initialState = make(map[string][]byte)
		return idx, nil
	case protocol.MessageGetStateKeys:
		return m.journal.Preload(journal.Entry{Type: journal.EntryGetStateKeys, State: journal.Pending}), nil
	case protocol.MessageGetPromise:
		msg, err := protocol.UnmarshalGetPromise(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed GetPromise", err)
		}
		return m.journal.Preload(journal.Entry{Type: journal.EntryGetPromise, State: journal.Pending, Name: msg.Name}), nil
	case protocol.MessagePeekPromise:
		msg, err := protocol.UnmarshalPeekPromise(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed PeekPromise", err)
		}
		return m.journal.Preload(journal.Entry{Type: journal.EntryPeekPromise, State: journal.Pending, Name: msg.Name}), nil
	case protocol.MessageCompletePromise:
		msg, err := protocol.UnmarshalCompletePromise(frame.Payload)
		if err != nil {
			return 0, errs.WrapProtocol("decoding replayed CompletePromise", err)
		}
		return m.journal.Preload(journal.Entry{Type: journal.EntryCompletePromise, State: journal.Pending, Name: msg.Name}), nil
	case protocol.MessageAttachInvocation:
		return m.journal.Preload(journal.Entry{Type: journal.EntryAttachInvocation, State: journal.Pending}), nil
	case protocol.MessageGetInvocationOutput:
		return m.journal.Preload(journal.Entry{Type: journal.EntryGetInvocationOutput, State: journal.Pending}), nil
	case protocol.MessageSendSignal:
		return m.journal.Preload(journal.Entry{Type: journal.EntrySendSignal, State: journal.Completed}), nil
	case protocol.MessageCompleteAwakeable:
		return m.journal.Preload(journal.Entry{Type: journal.EntryCompleteAwakeable, State: journal.Completed}), nil
	default:
		return 0, errs.NewProtocolf("unexpected command type %d during replay", frame.Type)
	}
}

// routeNotification dispatches an incoming notification frame to the
// appropriate completion manager (spec §4.6.4), shared by the handshake's
// replay loop and the steady-state incoming-notification activity.
func (m *Machine) routeNotification(frame protocol.Frame) error {
	if frame.Type == protocol.NotificationSignal {
		sig, err := protocol.UnmarshalSignalNotification(frame.Payload)
		if err != nil {
			return errs.WrapProtocol("decoding SignalNotification", err)
		}
		if sig.Result.Kind == protocol.CompletionFailure {
			m.signalCompletion.TryFail(sig.SignalIdx, sig.Result.Failure.Code, sig.Result.Failure.Message)
			return nil
		}
		m.signalCompletion.TryComplete(sig.SignalIdx, sig.Result)
		return nil
	}
	notif, err := protocol.UnmarshalCompletionNotification(frame.Payload)
	if err != nil {
		return errs.WrapProtocol("decoding completion notification", err)
	}
	result := notif.Result
	if result.Kind == protocol.CompletionStateKeys {
		result.Value = stateKeysToJSON(result.StateKeys)
	}
	if result.Kind == protocol.CompletionFailure {
		m.journalCompletion.TryFail(notif.CompletionID, result.Failure.Code, result.Failure.Message)
		return nil
	}
	m.journalCompletion.TryComplete(notif.CompletionID, result)
	return nil
}

// checkTransitionToProcessing moves Replaying → Processing the first time
// the journal cursor reaches knownEntries (spec §4.6.5), logging once.
func (m *Machine) checkTransitionToProcessing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lifecycle == Replaying && !m.journal.IsReplaying() {
		m.lifecycle = Processing
		if !m.loggedProcessing {
			m.loggedProcessing = true
			m.logger.Info(context.Background(), "invocation entered Processing")
			m.metrics.RecordGauge("restate.invocation.replayed_entries", float64(m.journal.KnownEntries()))
		}
	}
}

func (m *Machine) flush() error {
	return m.writer.Flush()
}

func (m *Machine) requireOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lifecycle == Closed {
		return errs.ErrClosed
	}
	return nil
}

// isReplaying reports whether the journal cursor has not yet caught up to
// knownEntries, rechecking the Replaying → Processing transition on every
// call since the cursor advances one primitive at a time as the handler
// consumes the pre-known log (spec §4.6.5).
func (m *Machine) isReplaying() bool {
	m.checkTransitionToProcessing()
	return m.journal.IsReplaying()
}
