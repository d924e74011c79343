package procsched

import (
	"fmt"
	"strings"
)

// LevelSnapshot lists the processes waiting at one priority level, head
// first.
type LevelSnapshot struct {
	Priority Priority
	Waiting  []ProcessID
}

// Snapshot is a consistent copy of the scheduler state taken under its
// lock.
type Snapshot struct {
	Capacity   int
	Free       int
	Registered int

	// Running lists processes last observed holding a processor, by id.
	Running []ProcessID

	// Levels lists non-empty ready queues, highest precedence first.
	Levels []LevelSnapshot
}

// Snapshot returns the current scheduler state.
func (s *Scheduler[M]) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Capacity:   s.capacity,
		Free:       s.free,
		Registered: s.procs.len(),
		Levels:     s.ready.snapshot(),
	}
	for _, p := range s.procs.procs {
		if p.state == StateRunning {
			snap.Running = append(snap.Running, p.id)
		}
	}
	return snap
}

// State returns the lifecycle state last observed for id.
func (s *Scheduler[M]) State(id ProcessID) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procs.lookup(id)
	if !ok {
		return 0, fmt.Errorf("state %d: %w", id, ErrUnknownProcess)
	}
	return p.state, nil
}

// Waiting returns the number of processes currently queued.
func (s *Scheduler[M]) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.waiting()
}

func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "free=%d/%d registered=%d running=%v", s.Free, s.Capacity, s.Registered, s.Running)
	for _, l := range s.Levels {
		fmt.Fprintf(&b, " p%d=%v", l.Priority, l.Waiting)
	}
	return b.String()
}
