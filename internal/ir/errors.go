package ir

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching across the pipeline.
var (
	ErrParse       = errors.New("parse error")
	ErrResolution  = errors.New("resolution error")
	ErrEmptyResult = errors.New("empty result")
	ErrIO          = errors.New("io error")
)

// ParseError reports a malformed record or line.
type ParseError struct {
	Source string // file name or stage
	Line   int    // 1-based, 0 when unknown
	Text   string // offending input
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %q", e.Source, e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("%s: %s: %q", e.Source, e.Reason, e.Text)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ResolutionError reports an unknown operation, tool, location, marker or
// capability mapping. Fatal marks the cases that must abort the stage,
// such as an undefined location inversion.
type ResolutionError struct {
	Kind   string // operation, location, inversion, marker, capability
	Key    string
	Fatal  bool
	Reason string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %s %q", e.Kind, e.Key)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// EmptyResultError reports that a stage produced nothing for downstream.
type EmptyResultError struct {
	Stage  string
	Reason string
}

func (e *EmptyResultError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: empty result: %s", e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s: empty result", e.Stage)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

// IOError reports an artifact read or write failure.
type IOError struct {
	Op   string // read, write, rename
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// IsFatal reports whether err must abort the current stage.
// Parse and resolution errors are recoverable unless marked otherwise.
func IsFatal(err error) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Fatal
	}
	return errors.Is(err, ErrEmptyResult) || errors.Is(err, ErrIO)
}
