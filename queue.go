package ioq

import (
	"sync"
	"sync/atomic"

	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/internal/proactor"
)

// Queue is the completion queue: a shared handle onto one underlying
// OS completion port. Clone returns a second Queue value referring to
// the same port — shared ownership, the same role Arc<QueueInner> plays
// in the source library — and the port is only actually torn down once
// every clone has been Closed.
type Queue struct {
	inner *queueInner
}

type queueInner struct {
	port *proactor.Port

	mu      sync.Mutex
	pending map[*proactor.Overlapped]*state

	refs   int32
	closed int32
}

// NewQueue creates a new completion queue backed by a fresh OS
// completion port (or its Linux epoll-based emulation).
func NewQueue() (*Queue, error) {
	port, err := proactor.NewPort()
	if err != nil {
		return nil, NewError(Unknown, "create completion port").WithContext(NewOSError("NewPort", err))
	}
	inner := &queueInner{
		port:    port,
		pending: make(map[*proactor.Overlapped]*state),
		refs:    1,
	}
	return &Queue{inner: inner}, nil
}

// Clone returns a new Queue value sharing the same underlying port.
// Each clone must be Closed independently; the port is torn down only
// when the last clone's Close runs.
func (q *Queue) Clone() *Queue {
	atomic.AddInt32(&q.inner.refs, 1)
	return &Queue{inner: q.inner}
}

// Associate registers h with the queue's completion port so operations
// on h can complete through it.
func (q *Queue) Associate(h handle.Handle) error {
	return q.inner.port.Associate(h)
}

// Post enqueues a user-defined completion. fn runs exactly once, at the
// Dequeue call that delivers it, before that Dequeue returns — the
// Custom event's callable, per the source library's Context::Custom
// variant.
func (q *Queue) Post(fn func()) error {
	if atomic.LoadInt32(&q.inner.closed) != 0 {
		return ErrQueueClosed
	}
	st := &state{ctx: &customContext{fn: fn}}
	q.register(st)
	if err := q.inner.port.Post(&st.ov, 0, nil); err != nil {
		q.unregister(st)
		return err
	}
	return nil
}

// Dequeue blocks until the next completion is available, translates it
// into an Event via its owning state's context, and returns it.
// ErrQueueClosed is returned once the queue (every clone of it) has
// been closed and no further completions remain.
func (q *Queue) Dequeue() (Event, error) {
	comp, err := q.inner.port.Wait()
	if err != nil {
		return Event{}, ErrQueueClosed
	}
	st := q.takeState(comp.Overlapped)
	if st == nil {
		// A completion arrived for an overlapped pointer this queue has
		// no record of (already dequeued, or never registered): the
		// one-completion-per-submission invariant is broken.
		panic(ErrDoubleComplete)
	}
	st.markCompleted()
	return st.ctx.intoEvent(comp), nil
}

func (q *Queue) register(st *state) {
	q.inner.mu.Lock()
	q.inner.pending[&st.ov] = st
	q.inner.mu.Unlock()
}

func (q *Queue) unregister(st *state) {
	q.inner.mu.Lock()
	delete(q.inner.pending, &st.ov)
	q.inner.mu.Unlock()
}

func (q *Queue) takeState(ov *proactor.Overlapped) *state {
	q.inner.mu.Lock()
	defer q.inner.mu.Unlock()
	st, ok := q.inner.pending[ov]
	if !ok {
		return nil
	}
	delete(q.inner.pending, ov)
	return st
}

// Close releases this Queue's share of the underlying port. Once every
// clone has been closed, the port itself is closed and any blocked
// Dequeue wakes with ErrQueueClosed.
func (q *Queue) Close() error {
	if atomic.AddInt32(&q.inner.refs, -1) > 0 {
		return nil
	}
	atomic.StoreInt32(&q.inner.closed, 1)
	return q.inner.port.Close()
}
