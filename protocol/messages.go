package protocol

// This file defines the Go-level shape of every message body in §3/§6. Wire
// encoding lives in wire.go; these structs are the decoded, in-memory form
// higher layers (journal, invocation) operate on directly.

type (
	// StartMessage is the first frame of every invocation (§4.6.2).
	StartMessage struct {
		InvocationID    []byte // raw bytes, used to derive awakeable ids
		DebugID         string // human-readable invocation id
		Key             string // set for keyed invocations
		KnownEntries    uint32
		RandomSeed      uint64
		PartialState    bool
		EagerState      map[string][]byte // only meaningful when PartialState == false
	}

	// InputMessage carries the handler's input payload and headers.
	InputMessage struct {
		Value   []byte
		Headers map[string]string
	}

	// OutputMessage carries the handler's terminal result. Value is always
	// set (possibly to an empty slice) for a successful completion; Failure
	// is set instead for a terminal error. HasValue distinguishes "empty
	// success" from "not a success at all" (§6 "always include the value
	// discriminator even when bytes are empty").
	OutputMessage struct {
		HasValue bool
		Value    []byte
		Failure  *Failure
	}

	// ErrorMessage reports a transient (retryable) failure (§4.6.3 "Transient
	// failure").
	ErrorMessage struct {
		Code    uint16
		Message string
	}

	// EntryAckMessage acknowledges a previously written entry. The core
	// observes and discards these (§4.6.4).
	EntryAckMessage struct {
		EntryIndex uint32
	}

	// SuspensionMessage signals that the runtime is suspending the
	// invocation pending one or more outstanding entries.
	SuspensionMessage struct {
		EntryIndexes []uint32
	}

	// GetStateMessage requests a keyed state value.
	GetStateMessage struct {
		Key string
	}

	// SetStateMessage durably sets a keyed state value.
	SetStateMessage struct {
		Key   string
		Value []byte
	}

	// ClearStateMessage durably removes a single keyed state value.
	ClearStateMessage struct {
		Key string
	}

	// ClearAllStateMessage durably removes all keyed state for the invocation.
	ClearAllStateMessage struct{}

	// GetStateKeysMessage requests the set of currently-set state keys.
	GetStateKeysMessage struct{}

	// GetPromiseMessage blocks until a named workflow promise resolves.
	GetPromiseMessage struct {
		Name string
	}

	// PeekPromiseMessage reads a named workflow promise without blocking.
	PeekPromiseMessage struct {
		Name string
	}

	// CompletePromiseMessage resolves or rejects a named workflow promise.
	CompletePromiseMessage struct {
		Name    string
		Value   []byte
		Failure *Failure
	}

	// SleepMessage requests a durable timer.
	SleepMessage struct {
		WakeUpTime uint64 // ms since epoch
	}

	// CallMessage invokes another handler and awaits its result (§4.6.3
	// "Call"). It reserves two journal slots: InvocationIDNotificationIdx for
	// the async invocation-id notification, and the following slot (implicit,
	// derived by the caller) for the result.
	CallMessage struct {
		Service                     string
		Handler                     string
		Key                         string
		Parameter                   []byte
		Headers                     map[string]string
		IdempotencyKey              string
		InvocationIDNotificationIdx uint32
	}

	// OneWayCallMessage is a fire-and-forget send (§4.6.3 "Send").
	OneWayCallMessage struct {
		Service                     string
		Handler                     string
		Key                         string
		Parameter                   []byte
		Headers                     map[string]string
		IdempotencyKey              string
		InvokeTime                  uint64 // 0 means immediate
		InvocationIDNotificationIdx uint32
	}

	// SendSignalMessage addresses a numeric signal at another invocation;
	// used by CancelInvocation with the built-in CANCEL signal index 1.
	SendSignalMessage struct {
		TargetInvocationID string
		SignalIdx          uint32
	}

	// RunMessage names a local side effect about to execute (§4.6.3 "Run").
	RunMessage struct {
		Name string
	}

	// ProposeRunCompletionMessage reports a Run side effect's outcome to the
	// runtime. Payload is the raw result bytes, not wrapped (§6).
	ProposeRunCompletionMessage struct {
		Value   []byte
		Failure *Failure
	}

	// AttachInvocationMessage attaches to another invocation's completion.
	AttachInvocationMessage struct {
		TargetInvocationID string
	}

	// GetInvocationOutputMessage polls another invocation's output without
	// blocking indefinitely; a void result means "not yet completed".
	GetInvocationOutputMessage struct {
		TargetInvocationID string
	}

	// CompleteAwakeableMessage resolves or rejects an awakeable by id.
	CompleteAwakeableMessage struct {
		ID      string
		Value   []byte
		Failure *Failure
	}

	// CompletionNotification is the generic shape of every journal-indexed
	// completion the runtime sends (§3 "Message types"). Exactly one of the
	// Result fields is meaningful, selected by Result.Kind.
	CompletionNotification struct {
		CompletionID uint32
		Result       CompletionResult
	}

	// SignalNotification resolves a signal-indexed rendezvous (awakeables).
	SignalNotification struct {
		SignalIdx uint32
		Result    CompletionResult
	}
)
