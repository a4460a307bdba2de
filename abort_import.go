package linuxperf

import "fmt"

// Most problems with a trace are local to one line and are recorded
// on the model as we go.  There are only two ways for a whole import
// to fail and we give each of them a type so that the caller can tell
// them apart (with `errors.As()`).

// An additional import (one merged into a model that already has data
// from another trace) cannot be placed on the timeline without a
// clock sync record.  The model has been rolled back to its state
// before the import and a single import error has been recorded.
type ImportAbortedError struct {
	Err error
}

func (iae *ImportAbortedError) Error() string {
	return iae.Err.Error()
}

func (iae *ImportAbortedError) Unwrap() error {
	return iae.Err
}

// A CPU slice carried a descheduling state that we don't know how to
// turn into a per-thread gap slice.  This indicates a problem in the
// event table rather than in the trace.
type UnrecognizedStateError struct {
	Tid   int
	Name  string
	State string
}

func (use *UnrecognizedStateError) Error() string {
	return fmt.Sprintf("Unrecognized state: '%s' (thread %d '%s')", use.State, use.Tid, use.Name)
}
