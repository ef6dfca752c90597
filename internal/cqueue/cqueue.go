// Package cqueue provides a blocking MPMC FIFO queue, built on top of
// github.com/eapache/queue's growable ring buffer the same way the
// teacher's internal/concurrency.Executor uses it — except dequeue here
// blocks the caller instead of polling, since the Linux proactor's Wait,
// on which the public completion queue's Dequeue sits, needs a true
// blocking wait.
package cqueue

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is a growable, mutex-guarded FIFO with a blocking Pop.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   *queue.Queue
	closed bool
}

// New returns an empty, open queue.
func New() *Queue {
	q := &Queue{ring: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends v and wakes one blocked Pop, if any. Push on a closed
// queue is a no-op: nothing enqueued after Close is ever observed.
func (q *Queue) Push(v interface{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.ring.Add(v)
	q.cond.Signal()
}

// Pop blocks until an element is available or the queue is closed. The
// second return value is false only when the queue was closed and
// drained.
func (q *Queue) Pop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.ring.Length() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.ring.Length() == 0 {
		return nil, false
	}
	v := q.ring.Peek()
	q.ring.Remove()
	return v, true
}

// TryPop returns immediately with ok=false if nothing is queued.
func (q *Queue) TryPop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ring.Length() == 0 {
		return nil, false
	}
	v := q.ring.Peek()
	q.ring.Remove()
	return v, true
}

// Close marks the queue closed and wakes every blocked Pop. Elements
// already queued remain poppable until drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of queued, undelivered elements.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Length()
}
