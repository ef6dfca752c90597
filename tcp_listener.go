package ioq

import (
	"sync"

	"github.com/kepler-io/ioq/internal/proactor"
	"github.com/kepler-io/ioq/internal/sock"
	"github.com/kepler-io/ioq/netaddr"
)

// TcpListener is a bound, listening TCP socket that submits one Accept
// at a time; each accepted connection is delivered as an Event with
// Kind == EventAccept from the Queue it was created with.
//
// mu serializes Accept's synchronous submission work the same way
// TcpStream's mutex does — released before Accept returns, never held
// across the in-flight window.
type TcpListener struct {
	mu     sync.Mutex
	sock   *sock.Socket
	queue  *Queue
	family proactor.Family
	addr   netaddr.SocketAddr
}

// Listen creates, binds, and starts listening on addr, associating the
// new socket with queue. It does not submit an Accept; call Accept
// explicitly. Each Accept call submits one independent one-shot
// operation, and several may be outstanding at once.
func Listen(queue *Queue, addr netaddr.SocketAddr) (*TcpListener, error) {
	family := proactor.INET
	if addr.IP.IsV6() {
		family = proactor.INET6
	}
	s, err := sock.New(family)
	if err != nil {
		return nil, NewError(Unknown, "create listening socket").WithContext(err)
	}
	if err := s.Bind(addr); err != nil {
		s.Close()
		return nil, NewError(Unknown, "bind listener").WithContext(err)
	}
	if err := s.Listen(128); err != nil {
		s.Close()
		return nil, NewError(Unknown, "listen").WithContext(err)
	}
	if err := queue.Associate(s.Handle()); err != nil {
		s.Close()
		return nil, NewError(Unknown, "associate listener with queue").WithContext(err)
	}
	// Addr() intentionally returns exactly the
	// address passed to Listen, port 0 included — there is no post-bind
	// getsockname query.
	return &TcpListener{sock: s, queue: queue, family: family, addr: addr}, nil
}

// Addr returns the address Listen was called with, unchanged.
func (l *TcpListener) Addr() netaddr.SocketAddr { return l.addr }

// Accept submits one accept operation. The accepted connection (or
// failure) is delivered by a later Queue.Dequeue as an Event with
// Kind == EventAccept.
func (l *TcpListener) Accept() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acceptSock, err := sock.New(l.family)
	if err != nil {
		return NewError(Unknown, "create accept socket").WithContext(err)
	}
	st := &state{ctx: &acceptContext{listener: l, acceptSock: acceptSock}}
	l.queue.register(st)
	if err := l.queue.inner.port.SubmitAccept(l.sock.Handle(), acceptSock.Handle(), &st.ov); err != nil {
		l.queue.unregister(st)
		acceptSock.Close()
		return NewError(Unknown, "submit accept").WithContext(err)
	}
	return nil
}

// Close closes the listening socket. Any already-submitted Accept still
// completes (typically with an error once the listener is gone).
func (l *TcpListener) Close() error {
	return l.sock.Close()
}
