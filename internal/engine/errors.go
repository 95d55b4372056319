package engine

import (
	"errors"
	"fmt"
)

// RuntimeError reports a failure while building or running a description.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	RunID   string
	Node    string
	Err     error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidTree indicates the description failed validation.
	ErrCodeInvalidTree RuntimeErrorCode = "INVALID_TREE"

	// ErrCodeTickFailed indicates a node returned an error while ticking.
	ErrCodeTickFailed RuntimeErrorCode = "TICK_FAILED"

	// ErrCodeAborted indicates the run was cancelled before the root finished.
	ErrCodeAborted RuntimeErrorCode = "ABORTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RunID != "" {
		msg += fmt.Sprintf(" (run=%s)", e.RunID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// IsAborted reports whether err is a cancelled run.
func IsAborted(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeAborted
	}
	return false
}

func newAbortError(runID string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAborted,
		Message: "run cancelled before the root finished",
		RunID:   runID,
		Err:     cause,
	}
}

func newTickError(runID string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTickFailed,
		Message: "tick returned an error",
		RunID:   runID,
		Err:     cause,
	}
}
