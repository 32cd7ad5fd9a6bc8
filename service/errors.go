package service

import "fmt"

// ValidationError rejects malformed input (bad prompt batch, stitch with
// fewer than two clips) synchronously, before any job exists.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError rejects a request that arrives while a batch or stitch job
// of the relevant kind is already in flight. Conflicting work is rejected,
// never queued.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

func conflictErrf(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}
