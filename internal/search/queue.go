package search

import "sync"

// Entry is one frontier position awaiting two-ply expansion.
type Entry struct {
	Depth uint32
	ID    uint64
}

// WorkQueue is a FIFO of frontier entries. It is safe for concurrent use,
// although the searcher drives it from a single goroutine.
type WorkQueue struct {
	mu    sync.Mutex
	queue []Entry
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{
		queue: make([]Entry, 0, 128),
	}
}

func (q *WorkQueue) Push(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, e)
}

// PushMany appends es in order.
func (q *WorkQueue) PushMany(es []Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, es...)
}

// TakeUpTo removes and returns the n oldest entries, or all of them when
// fewer than n are queued.
func (q *WorkQueue) TakeUpTo(n int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.queue) {
		n = len(q.queue)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Entry, n)
	copy(out, q.queue[:n])
	if n == len(q.queue) {
		// reuse the backing array once drained
		q.queue = q.queue[:0]
	} else {
		q.queue = q.queue[n:]
	}
	return out
}

func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
