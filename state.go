package ioq

import (
	"sync/atomic"

	"github.com/kepler-io/ioq/internal/proactor"
)

// state is one outstanding submission: the proactor.Overlapped that is
// handed to (and, on Windows, round-tripped by) the OS, plus the typed
// context describing what operation it belongs to.
//
// A state block's address is never taken for the Overlapped it embeds —
// &st.ov is passed directly to the proactor submission call, and the
// queue keeps st itself alive in its pending registry for as long as the
// operation is outstanding, which is also what keeps the Go garbage
// collector from reclaiming it while the OS holds a raw pointer to ov.
type state struct {
	ov        proactor.Overlapped
	ctx       context
	completed int32
}

// markCompleted flags the state as delivered exactly once. A second
// call indicates the same completion was delivered twice, which should
// be impossible under the one-shot submission contract; it panics
// rather than silently double-processing the event.
func (s *state) markCompleted() {
	if !atomic.CompareAndSwapInt32(&s.completed, 0, 1) {
		panic(ErrDoubleComplete)
	}
}
