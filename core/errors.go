package core

import (
	"errors"
	"fmt"
)

// Stable machine-readable error codes carried by protocol error events and
// tool result payloads. Internal error details never cross the protocol
// boundary; only a (code, message) pair does.
const (
	CodeEmptyContent       = "EMPTY_CONTENT"
	CodeNotFound           = "NOT_FOUND"
	CodeThreadBusy         = "THREAD_BUSY"
	CodeValidation         = "VALIDATION_ERROR"
	CodeToolTimeout        = "TOOL_TIMEOUT"
	CodeToolExecution      = "EXECUTION_ERROR"
	CodeTooManyDelegations = "TOO_MANY_DELEGATIONS"
	CodeAgentError         = "AGENT_ERROR"
	CodeStorageError       = "STORAGE_ERROR"
	CodeDuplicateTool      = "DUPLICATE_TOOL"
)

// Sentinel errors for the conditions callers are expected to branch on.
var (
	// ErrThreadNotFound indicates the referenced thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrThreadBusy indicates another turn is in flight for the same thread.
	ErrThreadBusy = errors.New("thread busy")
	// ErrEmptyContent indicates inbound content with no usable parts.
	ErrEmptyContent = errors.New("empty content")
	// ErrTooManyDelegations indicates the handoff depth bound was exceeded.
	ErrTooManyDelegations = errors.New("too many delegations")
	// ErrAgentNotFound indicates a delegation named an unknown agent.
	ErrAgentNotFound = errors.New("agent not found")
)

// ErrorInfo is the serializable (code, message) pair surfaced on protocol
// events and tool result payloads.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ErrorInfo) Error() string { return fmt.Sprintf("[%s] %s", e.Code, e.Message) }

// NewErrorInfo builds an ErrorInfo from a code and message.
func NewErrorInfo(code, message string) *ErrorInfo {
	return &ErrorInfo{Code: code, Message: message}
}

// Coded is implemented by errors that carry a stable machine code.
type Coded interface{ Code() string }

// StorageError wraps a store I/O failure. The turn ends and the system must
// not claim success to the caller.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

// Unwrap exposes the underlying failure for errors.Is/As.
func (e *StorageError) Unwrap() error { return e.Err }

// Code returns the stable storage error code.
func (e *StorageError) Code() string { return CodeStorageError }

// InfoFromError maps an error onto its protocol-safe (code, message) pair.
// Unrecognized errors are reported as opaque agent failures.
func InfoFromError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var coded Coded
	if errors.As(err, &coded) {
		return NewErrorInfo(coded.Code(), err.Error())
	}
	switch {
	case errors.Is(err, ErrThreadNotFound), errors.Is(err, ErrAgentNotFound):
		return NewErrorInfo(CodeNotFound, err.Error())
	case errors.Is(err, ErrThreadBusy):
		return NewErrorInfo(CodeThreadBusy, err.Error())
	case errors.Is(err, ErrEmptyContent):
		return NewErrorInfo(CodeEmptyContent, err.Error())
	case errors.Is(err, ErrTooManyDelegations):
		return NewErrorInfo(CodeTooManyDelegations, err.Error())
	default:
		return NewErrorInfo(CodeAgentError, err.Error())
	}
}
