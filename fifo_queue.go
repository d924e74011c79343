// fifo_queue.go
package procsched

const (
	initialFifoCapacity = 8
)

// fifoQueue is a growable first-in–first-out ring of process ids.
//
// One fifoQueue backs each priority level of the ready table. It is not
// safe for concurrent use; the scheduler lock guards every access.
type fifoQueue struct {
	buf        []ProcessID // circular buffer
	head, tail int         // read/write indices
	size       int         // number of ids currently buffered
	capacity   int
}

// newFifoQueue creates a FIFO queue with the given initial capacity.
// The queue grows on demand, so Push never drops an id.
func newFifoQueue(cap int) *fifoQueue {
	if cap <= 0 {
		cap = initialFifoCapacity
	}
	return &fifoQueue{
		buf:      make([]ProcessID, cap),
		capacity: cap,
	}
}

// Len returns the number of ids currently waiting in the queue.
func (q *fifoQueue) Len() int { return q.size }

// Push appends id at the tail, doubling the buffer when it is full.
func (q *fifoQueue) Push(id ProcessID) {
	if q.size == q.capacity {
		q.grow()
	}
	q.buf[q.tail] = id
	q.tail++
	if q.tail == q.capacity {
		q.tail = 0
	}
	q.size++
}

// Peek returns the id at the head without removing it.
func (q *fifoQueue) Peek() (ProcessID, bool) {
	if q.size == 0 {
		return 0, false
	}
	return q.buf[q.head], true
}

// Pop removes and returns the oldest id.
func (q *fifoQueue) Pop() (ProcessID, bool) {
	if q.size == 0 {
		return 0, false
	}
	id := q.buf[q.head]
	q.head++
	if q.head == q.capacity {
		q.head = 0
	}
	q.size--
	return id, true
}

// Contains reports whether id is currently queued.
func (q *fifoQueue) Contains(id ProcessID) bool {
	for i := 0; i < q.size; i++ {
		if q.buf[(q.head+i)%q.capacity] == id {
			return true
		}
	}
	return false
}

// Remove deletes the first occurrence of id, keeping the relative order
// of the remaining ids. It reports whether id was found.
func (q *fifoQueue) Remove(id ProcessID) bool {
	for i := 0; i < q.size; i++ {
		if q.buf[(q.head+i)%q.capacity] != id {
			continue
		}
		for j := i; j < q.size-1; j++ {
			q.buf[(q.head+j)%q.capacity] = q.buf[(q.head+j+1)%q.capacity]
		}
		q.tail--
		if q.tail < 0 {
			q.tail = q.capacity - 1
		}
		q.size--
		return true
	}
	return false
}

// Items returns a copy of the queued ids in FIFO order.
func (q *fifoQueue) Items() []ProcessID {
	out := make([]ProcessID, q.size)
	for i := range out {
		out[i] = q.buf[(q.head+i)%q.capacity]
	}
	return out
}

// grow doubles the capacity and unwraps the ring so head starts at 0.
func (q *fifoQueue) grow() {
	buf := make([]ProcessID, q.capacity*2)
	n := copy(buf, q.buf[q.head:])
	copy(buf[n:], q.buf[:q.head])
	q.buf = buf
	q.head = 0
	q.tail = q.size
	q.capacity = len(buf)
}
