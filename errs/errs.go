// Package errs defines the three observable error families an invocation can
// surface to the runtime: terminal handler failures, protocol violations, and
// (implicitly, as any other error) transient handler failures.
package errs

import (
	"errors"
	"fmt"
)

// TerminalError is a structured, non-retryable failure a handler raises to
// signal a business-level failure. It is surfaced to the runtime as
// Output(failure=...) rather than as a retryable Error frame.
type TerminalError struct {
	Code    uint16
	Message string
	Cause   error
}

// NewTerminal constructs a TerminalError with the given numeric code and
// message.
func NewTerminal(code uint16, message string) *TerminalError {
	return &TerminalError{Code: code, Message: message}
}

// NewTerminalf formats a TerminalError's message.
func NewTerminalf(code uint16, format string, args ...any) *TerminalError {
	return &TerminalError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *TerminalError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("terminal error %d: %s", e.Code, e.Message)
}

func (e *TerminalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ProtocolError reports malformed or unexpected wire state: truncated
// frames, an unknown command encountered during replay, or an illegal
// lifecycle transition. The SDK treats it as a transient error when the
// stream can still carry an Error frame, and tears the stream down silently
// otherwise.
type ProtocolError struct {
	Message string
	Cause   error
}

// NewProtocol constructs a ProtocolError.
func NewProtocol(message string) *ProtocolError {
	return &ProtocolError{Message: message}
}

// NewProtocolf formats a ProtocolError's message.
func NewProtocolf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

// WrapProtocol wraps cause as a ProtocolError with an additional message.
func WrapProtocol(message string, cause error) *ProtocolError {
	return &ProtocolError{Message: message, Cause: cause}
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ErrCancelled is returned by an in-flight await when the invocation's
// cancellation token fires or the stream closes during teardown.
var ErrCancelled = errors.New("restate: invocation cancelled")

// ErrClosed is returned when a caller attempts to write a command after the
// state machine has reached the Closed lifecycle state.
var ErrClosed = errors.New("restate: invocation already closed")

// IsTerminal reports whether err is (or wraps) a *TerminalError.
func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}

// IsProtocol reports whether err is (or wraps) a *ProtocolError.
func IsProtocol(err error) bool {
	var p *ProtocolError
	return errors.As(err, &p)
}

// AsFailure converts any error into the wire Failure shape. TerminalError and
// ProtocolError preserve their code (ProtocolError always uses code 571,
// matching the well-known "internal protocol violation" convention used by
// the runtime for SDK-detected errors); any other error becomes code 500.
func AsFailure(err error) (code uint16, message string) {
	var t *TerminalError
	if errors.As(err, &t) {
		return t.Code, t.Message
	}
	var p *ProtocolError
	if errors.As(err, &p) {
		return 571, p.Error()
	}
	return 500, err.Error()
}
