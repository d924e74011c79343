// Package procsched simulates an operating-system style scheduler that
// shares a fixed pool of virtual processors among competing processes.
//
// # Scheduling model
//
// Every process is registered once with a fixed priority. Smaller values
// take precedence. A process asks for a processor with AcquireInitial,
// gives it back and competes again with YieldAndReacquire, and finally
// returns it with Release:
//
//	id := s.Register(10)
//	if err := s.AcquireInitial(ctx, id); err != nil { ... }
//	// session 0
//	if err := s.YieldAndReacquire(ctx, id); err != nil { ... }
//	// session 1
//	_ = s.Release(id)
//
// A process is granted a processor only when all of the following hold:
//
//   - it is at the head of the ready queue of its own priority
//   - at least one processor is idle
//   - no process with a strictly smaller priority value is waiting
//
// This gives strict priority across levels and FIFO order within a
// level. Lower levels may starve under continuous higher-priority load.
//
// # Synchronization
//
// One mutex guards all scheduler state. Waiting processes park on a
// private wake channel, never spin, and always re-test the admission
// predicate after waking. Each state change that can make a waiter
// eligible (a processor freed, the pool resized, a queue head moved)
// wakes exactly one process: the head of the highest-precedence
// non-empty queue. A granted process passes the wake on while idle
// processors remain.
//
// # Cancellation
//
// Blocking calls take a context.Context. If it ends while the request is
// parked, the process leaves its queue before the call returns an error
// matching ErrWaitCanceled.
//
// # Misuse
//
// Calls out of the expected sequence, such as Release without a prior
// grant, are accepted as hints and reported through Options.OnMisuse.
// The idle count never exceeds the configured pool size.
//
// # Registry growth
//
// Registry entries and wake channels live for the lifetime of the
// Scheduler. Ids are never reused, so memory grows with the number of
// processes ever registered.
package procsched
