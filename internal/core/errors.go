package core

import "fmt"

// ValidationError reports malformed or out-of-range caller input. The operation
// was aborted before any write happened.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that no row matched the request. A state-guarded update
// that matched zero rows also surfaces as NotFoundError, so "does not exist" and
// "already in the target state" collapse into one message.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NotFoundf builds a NotFoundError with a formatted message.
func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError reports a failed call to an external system (approval workflow
// or Epicor). No local state was mutated.
type UpstreamError struct {
	System string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.System, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
