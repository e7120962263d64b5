package models

import "fmt"

// ParseError reports a malformed line or record. The offending line is
// dropped and the session continues.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Line, e.Reason)
}

// ValidationError reports an OHLC/volume/range invariant violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MalformedBatchError reports a historical batch with no usable lines.
type MalformedBatchError struct {
	Lines     int
	Malformed int
}

func (e *MalformedBatchError) Error() string {
	return fmt.Sprintf("malformed batch: %d lines, %d malformed, none usable", e.Lines, e.Malformed)
}

// InsufficientDataError reports too few usable rows to fit a model. The
// session phase reverts and further input is still accepted.
type InsufficientDataError struct {
	Rows int
	Min  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: %d rows, need at least %d", e.Rows, e.Min)
}

// TrainingError wraps an underlying fit failure. The previous model handle
// stays in service.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training failed: %v", e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }
