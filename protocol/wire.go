package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// This file hand-encodes every message body defined in messages.go using the
// low-level protobuf wire format via google.golang.org/protobuf/encoding/
// protowire, the same package codegen'd .pb.go files call into. There is no
// .proto source and no generator: field layout is chosen here the way any
// wire-compatible hand-rolled codec would, and decoding tolerates unknown
// fields (forward compatibility) the way protobuf always has.

// field numbers, grouped per message for readability.
const (
	fStartInvocationID = protowire.Number(1)
	fStartDebugID      = protowire.Number(2)
	fStartKey          = protowire.Number(3)
	fStartKnownEntries = protowire.Number(4)
	fStartRandomSeed   = protowire.Number(5)
	fStartPartialState = protowire.Number(6)
	fStartEagerState   = protowire.Number(7) // repeated KV

	fInputValue   = protowire.Number(1)
	fInputHeaders = protowire.Number(2) // repeated KV

	fOutputHasValue = protowire.Number(1)
	fOutputValue    = protowire.Number(2)
	fOutputFailure  = protowire.Number(3)

	fErrorCode    = protowire.Number(1)
	fErrorMessage = protowire.Number(2)

	fEntryAckIndex = protowire.Number(1)

	fSuspensionIndexes = protowire.Number(1) // repeated varint

	fKVKey   = protowire.Number(1)
	fKVValue = protowire.Number(2)

	fFailureCode    = protowire.Number(1)
	fFailureMessage = protowire.Number(2)

	fGetStateKey = protowire.Number(1)

	fSetStateKey   = protowire.Number(1)
	fSetStateValue = protowire.Number(2)

	fClearStateKey = protowire.Number(1)

	fPromiseName = protowire.Number(1)

	fCompletePromiseName    = protowire.Number(1)
	fCompletePromiseValue   = protowire.Number(2)
	fCompletePromiseFailure = protowire.Number(3)

	fSleepWakeUpTime = protowire.Number(1)

	fCallService        = protowire.Number(1)
	fCallHandler        = protowire.Number(2)
	fCallKey            = protowire.Number(3)
	fCallParameter      = protowire.Number(4)
	fCallHeaders        = protowire.Number(5)
	fCallIdempotencyKey = protowire.Number(6)
	fCallIDNotifIdx     = protowire.Number(7)

	fOneWayInvokeTime = protowire.Number(8)

	fSendSignalTarget = protowire.Number(1)
	fSendSignalIdx    = protowire.Number(2)

	fRunName = protowire.Number(1)

	fProposeRunValue   = protowire.Number(1)
	fProposeRunFailure = protowire.Number(2)

	fAttachTarget = protowire.Number(1)

	fCompleteAwakeableID      = protowire.Number(1)
	fCompleteAwakeableValue   = protowire.Number(2)
	fCompleteAwakeableFailure = protowire.Number(3)

	fCompletionID     = protowire.Number(1)
	fCompletionResult = protowire.Number(2)

	fSignalIdx    = protowire.Number(1)
	fSignalResult = protowire.Number(2)

	// CompletionResult submessage fields.
	fResultKind         = protowire.Number(1)
	fResultValue        = protowire.Number(2)
	fResultFailure      = protowire.Number(3)
	fResultInvocationID = protowire.Number(4)
	fResultStateKeys    = protowire.Number(5) // repeated string
)

// --- low level field scanning -----------------------------------------------

type wireField struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// parseFields tokenizes a protobuf wire-format message into a flat field
// list. Every field is returned with its number; a caller's switch picks
// the numbers it knows and ignores the rest, matching protobuf's standard
// forward-compatibility contract.
func parseFields(b []byte) ([]wireField, error) {
	var fields []wireField
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("protocol: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("protocol: malformed varint: %w", protowire.ParseError(n))
			}
			fields = append(fields, wireField{Num: num, Type: typ, Varint: v})
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("protocol: malformed bytes field: %w", protowire.ParseError(n))
			}
			fields = append(fields, wireField{Num: num, Type: typ, Bytes: v})
			b = b[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("protocol: malformed fixed32: %w", protowire.ParseError(n))
			}
			fields = append(fields, wireField{Num: num, Type: typ, Varint: uint64(v)})
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("protocol: malformed fixed64: %w", protowire.ParseError(n))
			}
			fields = append(fields, wireField{Num: num, Type: typ, Varint: v})
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("protocol: malformed field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return fields, nil
}

func appendStr(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendKV(b []byte, num protowire.Number, k, v string) []byte {
	var sub []byte
	sub = appendStr(sub, fKVKey, k)
	sub = appendStr(sub, fKVValue, v)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func appendStrMap(b []byte, num protowire.Number, m map[string]string) []byte {
	for k, v := range m {
		b = appendKV(b, num, k, v)
	}
	return b
}

func appendFailure(b []byte, num protowire.Number, f *Failure) []byte {
	if f == nil {
		return b
	}
	var sub []byte
	sub = appendVarint(sub, fFailureCode, uint64(f.Code))
	sub = appendStr(sub, fFailureMessage, f.Message)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func parseFailure(raw []byte) (*Failure, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	f := &Failure{}
	for _, fl := range fields {
		switch fl.Num {
		case fFailureCode:
			f.Code = uint16(fl.Varint)
		case fFailureMessage:
			f.Message = string(fl.Bytes)
		}
	}
	return f, nil
}

func parseStrMap(fields []wireField, num protowire.Number) map[string]string {
	var m map[string]string
	for _, fl := range fields {
		if fl.Num != num {
			continue
		}
		kvFields, err := parseFields(fl.Bytes)
		if err != nil {
			continue
		}
		var k, v string
		for _, kv := range kvFields {
			switch kv.Num {
			case fKVKey:
				k = string(kv.Bytes)
			case fKVValue:
				v = string(kv.Bytes)
			}
		}
		if m == nil {
			m = make(map[string]string)
		}
		m[k] = v
	}
	return m
}

func appendCompletionResult(b []byte, num protowire.Number, r CompletionResult) []byte {
	var sub []byte
	sub = appendVarint(sub, fResultKind, uint64(r.Kind))
	switch r.Kind {
	case CompletionValue:
		sub = protowire.AppendTag(sub, fResultValue, protowire.BytesType)
		sub = protowire.AppendBytes(sub, r.Value) // always include, even if empty
	case CompletionFailure:
		sub = appendFailure(sub, fResultFailure, &r.Failure)
	case CompletionInvocationID:
		sub = appendStr(sub, fResultInvocationID, r.InvocationID)
	case CompletionStateKeys:
		for _, k := range r.StateKeys {
			sub = appendStr(sub, fResultStateKeys, k)
		}
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func parseCompletionResult(raw []byte) (CompletionResult, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return CompletionResult{}, err
	}
	var r CompletionResult
	for _, fl := range fields {
		switch fl.Num {
		case fResultKind:
			r.Kind = CompletionKind(fl.Varint)
		case fResultValue:
			r.Value = fl.Bytes
		case fResultFailure:
			fv, err := parseFailure(fl.Bytes)
			if err != nil {
				return CompletionResult{}, err
			}
			r.Failure = *fv
		case fResultInvocationID:
			r.InvocationID = string(fl.Bytes)
		case fResultStateKeys:
			r.StateKeys = append(r.StateKeys, string(fl.Bytes))
		}
	}
	return r, nil
}

// --- per-message marshal/unmarshal ------------------------------------------

func (m *StartMessage) Marshal() []byte {
	var b []byte
	b = appendBytesField(b, fStartInvocationID, m.InvocationID)
	b = appendStr(b, fStartDebugID, m.DebugID)
	b = appendStr(b, fStartKey, m.Key)
	b = appendVarint(b, fStartKnownEntries, uint64(m.KnownEntries))
	b = appendVarint(b, fStartRandomSeed, m.RandomSeed)
	b = appendBool(b, fStartPartialState, m.PartialState)
	for k, v := range m.EagerState {
		b = appendKV(b, fStartEagerState, k, string(v))
	}
	return b
}

func UnmarshalStart(raw []byte) (*StartMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &StartMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fStartInvocationID:
			m.InvocationID = fl.Bytes
		case fStartDebugID:
			m.DebugID = string(fl.Bytes)
		case fStartKey:
			m.Key = string(fl.Bytes)
		case fStartKnownEntries:
			m.KnownEntries = uint32(fl.Varint)
		case fStartRandomSeed:
			m.RandomSeed = fl.Varint
		case fStartPartialState:
			m.PartialState = fl.Varint != 0
		case fStartEagerState:
			kvFields, err := parseFields(fl.Bytes)
			if err != nil {
				return nil, err
			}
			var k, v string
			for _, kv := range kvFields {
				switch kv.Num {
				case fKVKey:
					k = string(kv.Bytes)
				case fKVValue:
					v = string(kv.Bytes)
				}
			}
			if m.EagerState == nil {
				m.EagerState = make(map[string][]byte)
			}
			m.EagerState[k] = []byte(v)
		}
	}
	return m, nil
}

func (m *InputMessage) Marshal() []byte {
	var b []byte
	b = appendBytesField(b, fInputValue, m.Value)
	b = appendStrMap(b, fInputHeaders, m.Headers)
	return b
}

func UnmarshalInput(raw []byte) (*InputMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &InputMessage{}
	for _, fl := range fields {
		if fl.Num == fInputValue {
			m.Value = fl.Bytes
		}
	}
	m.Headers = parseStrMap(fields, fInputHeaders)
	return m, nil
}

func (m *OutputMessage) Marshal() []byte {
	var b []byte
	if m.HasValue {
		b = appendBool(b, fOutputHasValue, true)
		b = protowire.AppendTag(b, fOutputValue, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Value) // include even when empty, per §6
	} else {
		b = appendFailure(b, fOutputFailure, m.Failure)
	}
	return b
}

func UnmarshalOutput(raw []byte) (*OutputMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &OutputMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fOutputHasValue:
			m.HasValue = fl.Varint != 0
		case fOutputValue:
			m.Value = fl.Bytes
		case fOutputFailure:
			fv, err := parseFailure(fl.Bytes)
			if err != nil {
				return nil, err
			}
			m.Failure = fv
		}
	}
	return m, nil
}

func (m *ErrorMessage) Marshal() []byte {
	var b []byte
	b = appendVarint(b, fErrorCode, uint64(m.Code))
	b = appendStr(b, fErrorMessage, m.Message)
	return b
}

func UnmarshalError(raw []byte) (*ErrorMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &ErrorMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fErrorCode:
			m.Code = uint16(fl.Varint)
		case fErrorMessage:
			m.Message = string(fl.Bytes)
		}
	}
	return m, nil
}

func (m *EntryAckMessage) Marshal() []byte {
	return appendVarint(nil, fEntryAckIndex, uint64(m.EntryIndex))
}

func UnmarshalEntryAck(raw []byte) (*EntryAckMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &EntryAckMessage{}
	for _, fl := range fields {
		if fl.Num == fEntryAckIndex {
			m.EntryIndex = uint32(fl.Varint)
		}
	}
	return m, nil
}

func (m *GetStateMessage) Marshal() []byte { return appendStr(nil, fGetStateKey, m.Key) }

func UnmarshalGetState(raw []byte) (*GetStateMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &GetStateMessage{}
	for _, fl := range fields {
		if fl.Num == fGetStateKey {
			m.Key = string(fl.Bytes)
		}
	}
	return m, nil
}

func (m *SetStateMessage) Marshal() []byte {
	var b []byte
	b = appendStr(b, fSetStateKey, m.Key)
	b = appendBytesField(b, fSetStateValue, m.Value)
	return b
}

func UnmarshalSetState(raw []byte) (*SetStateMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &SetStateMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fSetStateKey:
			m.Key = string(fl.Bytes)
		case fSetStateValue:
			m.Value = fl.Bytes
		}
	}
	return m, nil
}

func (m *ClearStateMessage) Marshal() []byte { return appendStr(nil, fClearStateKey, m.Key) }

func UnmarshalClearState(raw []byte) (*ClearStateMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &ClearStateMessage{}
	for _, fl := range fields {
		if fl.Num == fClearStateKey {
			m.Key = string(fl.Bytes)
		}
	}
	return m, nil
}

func (m *ClearAllStateMessage) Marshal() []byte { return nil }

func UnmarshalClearAllState([]byte) (*ClearAllStateMessage, error) {
	return &ClearAllStateMessage{}, nil
}

func (m *GetStateKeysMessage) Marshal() []byte { return nil }

func UnmarshalGetStateKeys([]byte) (*GetStateKeysMessage, error) {
	return &GetStateKeysMessage{}, nil
}

func (m *GetPromiseMessage) Marshal() []byte { return appendStr(nil, fPromiseName, m.Name) }

func (m *PeekPromiseMessage) Marshal() []byte { return appendStr(nil, fPromiseName, m.Name) }

func unmarshalPromiseName(raw []byte) (string, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return "", err
	}
	var name string
	for _, fl := range fields {
		if fl.Num == fPromiseName {
			name = string(fl.Bytes)
		}
	}
	return name, nil
}

func UnmarshalGetPromise(raw []byte) (*GetPromiseMessage, error) {
	n, err := unmarshalPromiseName(raw)
	return &GetPromiseMessage{Name: n}, err
}

func UnmarshalPeekPromise(raw []byte) (*PeekPromiseMessage, error) {
	n, err := unmarshalPromiseName(raw)
	return &PeekPromiseMessage{Name: n}, err
}

func (m *CompletePromiseMessage) Marshal() []byte {
	var b []byte
	b = appendStr(b, fCompletePromiseName, m.Name)
	if m.Failure != nil {
		b = appendFailure(b, fCompletePromiseFailure, m.Failure)
	} else {
		b = appendBytesField(b, fCompletePromiseValue, m.Value)
	}
	return b
}

func UnmarshalCompletePromise(raw []byte) (*CompletePromiseMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &CompletePromiseMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fCompletePromiseName:
			m.Name = string(fl.Bytes)
		case fCompletePromiseValue:
			m.Value = fl.Bytes
		case fCompletePromiseFailure:
			fv, err := parseFailure(fl.Bytes)
			if err != nil {
				return nil, err
			}
			m.Failure = fv
		}
	}
	return m, nil
}

func (m *SleepMessage) Marshal() []byte { return appendVarint(nil, fSleepWakeUpTime, m.WakeUpTime) }

func UnmarshalSleep(raw []byte) (*SleepMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &SleepMessage{}
	for _, fl := range fields {
		if fl.Num == fSleepWakeUpTime {
			m.WakeUpTime = fl.Varint
		}
	}
	return m, nil
}

func (m *CallMessage) Marshal() []byte {
	var b []byte
	b = appendStr(b, fCallService, m.Service)
	b = appendStr(b, fCallHandler, m.Handler)
	b = appendStr(b, fCallKey, m.Key)
	b = appendBytesField(b, fCallParameter, m.Parameter)
	b = appendStrMap(b, fCallHeaders, m.Headers)
	b = appendStr(b, fCallIdempotencyKey, m.IdempotencyKey)
	b = appendVarint(b, fCallIDNotifIdx, uint64(m.InvocationIDNotificationIdx))
	return b
}

func UnmarshalCall(raw []byte) (*CallMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &CallMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fCallService:
			m.Service = string(fl.Bytes)
		case fCallHandler:
			m.Handler = string(fl.Bytes)
		case fCallKey:
			m.Key = string(fl.Bytes)
		case fCallParameter:
			m.Parameter = fl.Bytes
		case fCallIdempotencyKey:
			m.IdempotencyKey = string(fl.Bytes)
		case fCallIDNotifIdx:
			m.InvocationIDNotificationIdx = uint32(fl.Varint)
		}
	}
	m.Headers = parseStrMap(fields, fCallHeaders)
	return m, nil
}

func (m *OneWayCallMessage) Marshal() []byte {
	var b []byte
	b = appendStr(b, fCallService, m.Service)
	b = appendStr(b, fCallHandler, m.Handler)
	b = appendStr(b, fCallKey, m.Key)
	b = appendBytesField(b, fCallParameter, m.Parameter)
	b = appendStrMap(b, fCallHeaders, m.Headers)
	b = appendStr(b, fCallIdempotencyKey, m.IdempotencyKey)
	b = appendVarint(b, fCallIDNotifIdx, uint64(m.InvocationIDNotificationIdx))
	b = appendVarint(b, fOneWayInvokeTime, m.InvokeTime)
	return b
}

func UnmarshalOneWayCall(raw []byte) (*OneWayCallMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &OneWayCallMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fCallService:
			m.Service = string(fl.Bytes)
		case fCallHandler:
			m.Handler = string(fl.Bytes)
		case fCallKey:
			m.Key = string(fl.Bytes)
		case fCallParameter:
			m.Parameter = fl.Bytes
		case fCallIdempotencyKey:
			m.IdempotencyKey = string(fl.Bytes)
		case fCallIDNotifIdx:
			m.InvocationIDNotificationIdx = uint32(fl.Varint)
		case fOneWayInvokeTime:
			m.InvokeTime = fl.Varint
		}
	}
	m.Headers = parseStrMap(fields, fCallHeaders)
	return m, nil
}

func (m *SendSignalMessage) Marshal() []byte {
	var b []byte
	b = appendStr(b, fSendSignalTarget, m.TargetInvocationID)
	b = appendVarint(b, fSendSignalIdx, uint64(m.SignalIdx))
	return b
}

func UnmarshalSendSignal(raw []byte) (*SendSignalMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &SendSignalMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fSendSignalTarget:
			m.TargetInvocationID = string(fl.Bytes)
		case fSendSignalIdx:
			m.SignalIdx = uint32(fl.Varint)
		}
	}
	return m, nil
}

func (m *RunMessage) Marshal() []byte { return appendStr(nil, fRunName, m.Name) }

func UnmarshalRun(raw []byte) (*RunMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &RunMessage{}
	for _, fl := range fields {
		if fl.Num == fRunName {
			m.Name = string(fl.Bytes)
		}
	}
	return m, nil
}

func (m *ProposeRunCompletionMessage) Marshal() []byte {
	var b []byte
	if m.Failure != nil {
		b = appendFailure(b, fProposeRunFailure, m.Failure)
	} else {
		b = appendBytesField(b, fProposeRunValue, m.Value)
	}
	return b
}

func UnmarshalProposeRunCompletion(raw []byte) (*ProposeRunCompletionMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &ProposeRunCompletionMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fProposeRunValue:
			m.Value = fl.Bytes
		case fProposeRunFailure:
			fv, err := parseFailure(fl.Bytes)
			if err != nil {
				return nil, err
			}
			m.Failure = fv
		}
	}
	return m, nil
}

func (m *AttachInvocationMessage) Marshal() []byte { return appendStr(nil, fAttachTarget, m.TargetInvocationID) }

func UnmarshalAttachInvocation(raw []byte) (*AttachInvocationMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &AttachInvocationMessage{}
	for _, fl := range fields {
		if fl.Num == fAttachTarget {
			m.TargetInvocationID = string(fl.Bytes)
		}
	}
	return m, nil
}

func (m *GetInvocationOutputMessage) Marshal() []byte {
	return appendStr(nil, fAttachTarget, m.TargetInvocationID)
}

func UnmarshalGetInvocationOutput(raw []byte) (*GetInvocationOutputMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &GetInvocationOutputMessage{}
	for _, fl := range fields {
		if fl.Num == fAttachTarget {
			m.TargetInvocationID = string(fl.Bytes)
		}
	}
	return m, nil
}

func (m *CompleteAwakeableMessage) Marshal() []byte {
	var b []byte
	b = appendStr(b, fCompleteAwakeableID, m.ID)
	if m.Failure != nil {
		b = appendFailure(b, fCompleteAwakeableFailure, m.Failure)
	} else {
		b = appendBytesField(b, fCompleteAwakeableValue, m.Value)
	}
	return b
}

func UnmarshalCompleteAwakeable(raw []byte) (*CompleteAwakeableMessage, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &CompleteAwakeableMessage{}
	for _, fl := range fields {
		switch fl.Num {
		case fCompleteAwakeableID:
			m.ID = string(fl.Bytes)
		case fCompleteAwakeableValue:
			m.Value = fl.Bytes
		case fCompleteAwakeableFailure:
			fv, err := parseFailure(fl.Bytes)
			if err != nil {
				return nil, err
			}
			m.Failure = fv
		}
	}
	return m, nil
}

func (m *CompletionNotification) Marshal() []byte {
	var b []byte
	b = appendVarint(b, fCompletionID, uint64(m.CompletionID))
	b = appendCompletionResult(b, fCompletionResult, m.Result)
	return b
}

func UnmarshalCompletionNotification(raw []byte) (*CompletionNotification, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &CompletionNotification{}
	for _, fl := range fields {
		switch fl.Num {
		case fCompletionID:
			m.CompletionID = uint32(fl.Varint)
		case fCompletionResult:
			r, err := parseCompletionResult(fl.Bytes)
			if err != nil {
				return nil, err
			}
			m.Result = r
		}
	}
	return m, nil
}

func (m *SignalNotification) Marshal() []byte {
	var b []byte
	b = appendVarint(b, fSignalIdx, uint64(m.SignalIdx))
	b = appendCompletionResult(b, fSignalResult, m.Result)
	return b
}

func UnmarshalSignalNotification(raw []byte) (*SignalNotification, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return nil, err
	}
	m := &SignalNotification{}
	for _, fl := range fields {
		switch fl.Num {
		case fSignalIdx:
			m.SignalIdx = uint32(fl.Varint)
		case fSignalResult:
			r, err := parseCompletionResult(fl.Bytes)
			if err != nil {
				return nil, err
			}
			m.Result = r
		}
	}
	return m, nil
}
