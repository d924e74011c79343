package procsched

import (
	"errors"
)

var (
	// ErrUnknownProcess is returned when an operation names a process id
	// that was never registered.
	ErrUnknownProcess = errors.New("procsched: unknown process")

	// ErrWaitCanceled is returned when the caller's context ends while an
	// admission request is parked. The returned error also matches the
	// context's own error.
	ErrWaitCanceled = errors.New("procsched: wait canceled")

	// ErrAlreadyQueued is returned when an admission request is made for
	// a process that is already waiting in its ready queue.
	ErrAlreadyQueued = errors.New("procsched: process already queued")

	// ErrMisuse wraps out-of-sequence calls that are accepted anyway and
	// reported through Options.OnMisuse.
	ErrMisuse = errors.New("procsched: call out of sequence")
)
