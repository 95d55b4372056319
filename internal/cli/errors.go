package cli

import (
	"errors"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/engine"
	"github.com/roach88/sched2bt/internal/ir"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric = "E001" // Generic/unknown error

	// Pipeline errors (E2xx)
	ErrCodeConfig      = "E201" // Configuration schema violation
	ErrCodeParse       = "E202" // Malformed record, plan line or table
	ErrCodeResolution  = "E203" // Unresolvable operation, location or capability
	ErrCodeEmptyResult = "E204" // A stage produced nothing
	ErrCodeIO          = "E205" // Read, write or rename failure
	ErrCodeInvalidTree = "E206" // Behavior description failed validation
	ErrCodeAborted     = "E207" // Run interrupted before the root finished
	ErrCodeRunFailed   = "E208" // Root finished with failure
	ErrCodeStore       = "E209" // Knowledge store failure
)

// errorCode classifies err into a CLI error code.
func errorCode(err error) string {
	var cfgErr *config.ValidationError
	var rtErr *engine.RuntimeError
	if errors.As(err, &rtErr) {
		switch rtErr.Code {
		case engine.ErrCodeInvalidTree:
			return ErrCodeInvalidTree
		case engine.ErrCodeAborted:
			return ErrCodeAborted
		}
	}
	switch {
	case errors.As(err, &cfgErr):
		return ErrCodeConfig
	case errors.Is(err, ir.ErrEmptyResult):
		return ErrCodeEmptyResult
	case errors.Is(err, ir.ErrResolution):
		return ErrCodeResolution
	case errors.Is(err, ir.ErrParse):
		return ErrCodeParse
	case errors.Is(err, ir.ErrIO):
		return ErrCodeIO
	}
	return ErrCodeGeneric
}

// outputError reports err through the formatter and returns the matching
// ExitError. Aborted runs exit with ExitFailure, everything else is a
// command error.
func outputError(formatter *OutputFormatter, message string, err error) error {
	return outputErrorCode(formatter, errorCode(err), message, err)
}

// outputErrorCode is outputError with an explicit code.
func outputErrorCode(formatter *OutputFormatter, code, message string, err error) error {
	_ = formatter.Error(code, message+": "+err.Error(), nil)
	return WrapExitError(exitCode(code), code+": "+message, err)
}

func exitCode(code string) int {
	if code == ErrCodeAborted || code == ErrCodeRunFailed {
		return ExitFailure
	}
	return ExitCommandError
}
