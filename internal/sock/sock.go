// Package sock is the RAII wrapper around a raw socket handle: it owns
// exactly one handle.Handle, guarantees Close is idempotent and safe to
// call from multiple goroutines, and carries the address family the
// handle was created with so callers never have to re-derive it.
package sock

import (
	"sync/atomic"

	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/internal/proactor"
	"github.com/kepler-io/ioq/netaddr"
)

// Socket owns one raw OS socket handle.
type Socket struct {
	h      handle.Handle
	family proactor.Family
	closed int32
}

// New creates a fresh non-blocking/overlapped socket for family.
func New(family proactor.Family) (*Socket, error) {
	h, err := proactor.NewSocket(family)
	if err != nil {
		return nil, err
	}
	return &Socket{h: h, family: family}, nil
}

// FromHandle adopts an already-created handle (used for a socket
// AcceptEx has just filled in on Windows, or accept4 has just returned
// on Linux).
func FromHandle(h handle.Handle, family proactor.Family) *Socket {
	return &Socket{h: h, family: family}
}

// Handle returns the raw handle. The returned value must not outlive a
// Close call on s.
func (s *Socket) Handle() handle.Handle { return s.h }

// Family reports the address family this socket was created with.
func (s *Socket) Family() proactor.Family { return s.family }

// Valid reports whether the socket has not yet been closed.
func (s *Socket) Valid() bool { return atomic.LoadInt32(&s.closed) == 0 }

// Bind binds the socket to addr. Per the bind-before-connect
// requirement ConnectEx imposes on Windows, TcpStream always binds
// before it ever connects, even though Linux's connect(2) does not
// strictly require it.
func (s *Socket) Bind(addr netaddr.SocketAddr) error {
	return bindPlatform(s.h, addr)
}

// Listen marks the socket as passive with the given backlog.
func (s *Socket) Listen(backlog int) error {
	return listenPlatform(s.h, backlog)
}

// Close releases the underlying handle exactly once. Calling Close more
// than once is a no-op, not an error — state.go's double-free guard is
// the layer that panics on misuse; Socket itself stays quiet so
// defer s.Close() is always safe.
func (s *Socket) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	return closePlatform(s.h)
}
