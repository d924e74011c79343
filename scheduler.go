package procsched

import (
	"context"
	"fmt"
	"sync"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Scheduler arbitrates a pool of virtual processors among registered
// processes.
//
// A single mutex guards the processor count, the ready table and the
// registry. A process waiting for a processor parks on its own wake
// channel with the lock released; it is woken by the notify policy and
// always re-tests the admission predicate before proceeding.
type Scheduler[M MetricsPolicy] struct {
	mu sync.Mutex

	// free is the number of idle processors, 0 <= free <= capacity.
	free     int
	capacity int

	ready *readyTable
	procs registry

	metrics M
	opts    Options
}

// New creates a scheduler with opts.Processors idle processors.
func New[M MetricsPolicy](metrics M, opts Options) *Scheduler[M] {
	opts.FillDefaults()
	return &Scheduler[M]{
		free:     opts.Processors,
		capacity: opts.Processors,
		ready:    newReadyTable(),
		metrics:  metrics,
		opts:     opts,
	}
}

// Configure sets the pool size and the number of idle processors to n.
//
// It is meant to be called once, before any process registers. A
// negative n is clamped to zero.
func (s *Scheduler[M]) Configure(n int) {
	logger := lg.FromContext(s.opts.Ctx)
	if n < 0 {
		logger.Warn("negative processor count clamped to zero", lg.Int("requested", n))
		n = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.capacity = n
	s.free = n
	logger.Info("scheduler configured", lg.Int("processors", n))

	// Raising the pool may unblock a waiter.
	s.notify()
}

// Register adds a process at priority prio and returns its id.
// Ids start at 0 and increase by one per call.
func (s *Scheduler[M]) Register(prio Priority) ProcessID {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.procs.add(prio)
	s.ready.ensure(prio)
	s.metrics.IncRegistered()
	return p.id
}

// AcquireInitial blocks until process id is granted a processor.
//
// If ctx ends first, the process leaves its ready queue and the returned
// error matches both ErrWaitCanceled and ctx.Err().
func (s *Scheduler[M]) AcquireInitial(ctx context.Context, id ProcessID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, q, err := s.enqueueable(id, "acquire")
	if err != nil {
		return err
	}
	if p.state == StateRunning {
		s.reportMisuse(p, "acquire")
	}

	q.Push(id)
	p.state = StateReady
	return s.admit(ctx, p, q)
}

// YieldAndReacquire gives back the processor held by id and blocks until
// id is granted one again, competing with every other waiter.
//
// On cancellation the processor stays released and the process holds
// nothing.
func (s *Scheduler[M]) YieldAndReacquire(ctx context.Context, id ProcessID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, q, err := s.enqueueable(id, "yield")
	if err != nil {
		return err
	}
	if p.state != StateRunning {
		s.reportMisuse(p, "yield")
	}

	s.putProcessor()
	q.Push(id)
	p.state = StateReady
	s.metrics.IncYielded()
	s.notify()

	return s.admit(ctx, p, q)
}

// Release returns a processor to the pool and wakes the next eligible
// waiter. It never blocks.
//
// The id is taken as a hint: a release by a process that is not running
// is still accepted and reported through Options.OnMisuse.
func (s *Scheduler[M]) Release(id ProcessID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs.lookup(id)
	if !ok {
		return fmt.Errorf("release %d: %w", id, ErrUnknownProcess)
	}
	if p.state != StateRunning {
		s.reportMisuse(p, "release")
	}

	s.putProcessor()
	if p.state != StateReady {
		p.state = StateReleased
	}
	s.metrics.IncReleased()
	s.notify()
	return nil
}

// enqueueable resolves id for an admission request. It is called with
// s.mu held.
func (s *Scheduler[M]) enqueueable(id ProcessID, op string) (*process, *fifoQueue, error) {
	p, ok := s.procs.lookup(id)
	if !ok {
		return nil, nil, fmt.Errorf("%s %d: %w", op, id, ErrUnknownProcess)
	}
	q := s.ready.queue(p.prio)
	if q.Contains(id) {
		return nil, nil, fmt.Errorf("%s %d: %w", op, id, ErrAlreadyQueued)
	}
	return p, q, nil
}

// putProcessor returns one processor to the pool. The pool never grows
// past its configured size, even when a release is not paired with a
// grant.
func (s *Scheduler[M]) putProcessor() {
	if s.free < s.capacity {
		s.free++
	}
}

// admissible is the admission predicate for p. Called with s.mu held.
func (s *Scheduler[M]) admissible(p *process, q *fifoQueue) bool {
	head, ok := q.Peek()
	return ok && head == p.id &&
		s.free > 0 &&
		!s.ready.higherWaiting(p.prio)
}

// admit parks p until the admission predicate holds, then grants it a
// processor. It is called and returns with s.mu held; the lock is
// released only while parked.
func (s *Scheduler[M]) admit(ctx context.Context, p *process, q *fifoQueue) error {
	for !s.admissible(p, q) {
		s.mu.Unlock()
		select {
		case <-p.wake:
			s.mu.Lock()
		case <-ctx.Done():
			s.mu.Lock()
			return s.abandon(ctx, p, q)
		}
	}

	q.Pop()
	s.free--
	p.state = StateRunning

	// Drop a token posted while p was already eligible.
	select {
	case <-p.wake:
	default:
	}

	s.metrics.IncGranted()
	s.reportGrant(p)

	// The queue head moved; pass the baton if processors remain.
	if s.free > 0 {
		s.notify()
	}
	return nil
}

// abandon removes a cancelled waiter from its queue. Called with s.mu held.
func (s *Scheduler[M]) abandon(ctx context.Context, p *process, q *fifoQueue) error {
	q.Remove(p.id)
	p.state = StateRegistered
	s.metrics.IncCanceled()

	lg.FromContext(ctx).Warn("admission canceled",
		lg.Int("pid", int(p.id)),
		lg.Int("priority", int(p.prio)),
		lg.Any("reason", ctx.Err()),
	)

	// p may have been the head blocking its level or a lower one.
	if s.free > 0 {
		s.notify()
	}
	return fmt.Errorf("%w: process %d: %w", ErrWaitCanceled, p.id, ctx.Err())
}

// notify wakes the head of the highest-precedence non-empty queue. The
// woken process re-validates the predicate itself. Called with s.mu held.
func (s *Scheduler[M]) notify() {
	id, ok := s.ready.next()
	if !ok {
		return
	}
	p, _ := s.procs.lookup(id)
	if p.signal() {
		s.metrics.IncWakeups()
	}
}
