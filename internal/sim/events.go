package sim

import (
	"fmt"
	"sync"

	"github.com/Andrej220/go-utils/procsched"
)

// Event marks the start of one session: the moment a process returned
// from an admission call holding a processor.
type Event struct {
	PID     procsched.ProcessID
	Session int
}

// String formats the event the way scenario expectations are written.
func (e Event) String() string {
	return fmt.Sprintf("pid=%d, session=%d", e.PID, e.Session)
}

// eventLog is an append-only, concurrency-safe list of events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
