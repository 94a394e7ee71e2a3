package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of runtime errors. Timeout, CircuitOpen
// and Execution propagate to the graph driver after retries are exhausted;
// Protocol is always recovered locally (clamped and logged) and must never
// surface to a caller.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "TIMEOUT"
	KindCircuitOpen ErrorKind = "CIRCUIT_OPEN"
	KindExecution   ErrorKind = "EXECUTION"
	KindProtocol    ErrorKind = "PROTOCOL"
)

// Error is the structured error type of the runtime. Agent denotes the node
// the error belongs to; Cause preserves the original failure for
// errors.Is/As chains.
type Error struct {
	Kind      ErrorKind `json:"kind"`
	Agent     string    `json:"agent,omitempty"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewTimeoutError reports that agent exceeded its time budget.
func NewTimeoutError(agent string, cause error) *Error {
	return &Error{
		Kind:      KindTimeout,
		Agent:     agent,
		Message:   fmt.Sprintf("agent %s exceeded its time budget", agent),
		Retryable: true,
		Cause:     cause,
	}
}

// NewCircuitOpenError reports that the breaker refused a call for agent.
func NewCircuitOpenError(agent string, cause error) *Error {
	return &Error{
		Kind:    KindCircuitOpen,
		Agent:   agent,
		Message: fmt.Sprintf("circuit breaker open for agent %s", agent),
		Cause:   cause,
	}
}

// NewExecutionError wraps an agent-level failure, preserving the cause.
func NewExecutionError(agent string, cause error) *Error {
	return &Error{
		Kind:      KindExecution,
		Agent:     agent,
		Message:   fmt.Sprintf("agent %s failed", agent),
		Retryable: true,
		Cause:     cause,
	}
}

// NewProtocolError reports a contract violation (illegal router target,
// unknown wizard state). Protocol errors are recovered where they occur.
func NewProtocolError(component, message string) *Error {
	return &Error{
		Kind:    KindProtocol,
		Agent:   component,
		Message: message,
	}
}

// NewRecoverableError marks cause as a recognized recoverable agent error.
// The envelope treats it like a timeout: the attempt failed but may be
// retried.
func NewRecoverableError(agent string, cause error) *Error {
	return &Error{
		Kind:      KindExecution,
		Agent:     agent,
		Message:   fmt.Sprintf("agent %s hit a recoverable error", agent),
		Retryable: true,
		Cause:     cause,
	}
}

// KindOf extracts the ErrorKind from err, empty string for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
