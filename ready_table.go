package procsched

import (
	"slices"
)

// readyTable maps priority levels to FIFO queues of waiting processes.
//
// levels is kept sorted ascending, so iterating it visits the highest
// precedence level first. Levels are created by Register and never
// removed; an empty level costs one small ring buffer.
type readyTable struct {
	levels []Priority
	queues map[Priority]*fifoQueue
}

func newReadyTable() *readyTable {
	return &readyTable{
		queues: make(map[Priority]*fifoQueue),
	}
}

// ensure creates an empty queue for p if none exists yet.
func (t *readyTable) ensure(p Priority) *fifoQueue {
	if q, ok := t.queues[p]; ok {
		return q
	}
	q := newFifoQueue(initialFifoCapacity)
	t.queues[p] = q
	idx, _ := slices.BinarySearch(t.levels, p)
	t.levels = slices.Insert(t.levels, idx, p)
	return q
}

func (t *readyTable) queue(p Priority) *fifoQueue {
	return t.ensure(p)
}

// higherWaiting reports whether any level with strictly higher precedence
// than p has a waiting process.
func (t *readyTable) higherWaiting(p Priority) bool {
	for _, lvl := range t.levels {
		if lvl >= p {
			return false
		}
		if t.queues[lvl].Len() > 0 {
			return true
		}
	}
	return false
}

// next returns the head of the first non-empty level, scanning from the
// highest precedence down.
func (t *readyTable) next() (ProcessID, bool) {
	for _, lvl := range t.levels {
		if id, ok := t.queues[lvl].Peek(); ok {
			return id, true
		}
	}
	return 0, false
}

// waiting returns the total number of queued processes.
func (t *readyTable) waiting() int {
	n := 0
	for _, q := range t.queues {
		n += q.Len()
	}
	return n
}

// snapshot copies every non-empty level in precedence order.
func (t *readyTable) snapshot() []LevelSnapshot {
	var out []LevelSnapshot
	for _, lvl := range t.levels {
		q := t.queues[lvl]
		if q.Len() == 0 {
			continue
		}
		out = append(out, LevelSnapshot{Priority: lvl, Waiting: q.Items()})
	}
	return out
}
