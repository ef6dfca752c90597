package ioq

import (
	"sync"

	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/internal/proactor"
	"github.com/kepler-io/ioq/internal/sock"
	"github.com/kepler-io/ioq/netaddr"
)

// TcpStream is a connected (or connecting) TCP socket. It is produced
// either by TcpListener.Accept's completion or by NewStream + Connect.
//
// mu serializes this instance's submission path (Connect/Send/Receive):
// it covers only the synchronous state-registration-and-submit work and
// is released before returning, never held across the in-flight window —
// operations of different kinds may be outstanding concurrently and
// complete in whatever order the OS delivers them.
type TcpStream struct {
	mu     sync.Mutex
	sock   *sock.Socket
	queue  *Queue
	family proactor.Family
	local  netaddr.SocketAddr
	remote netaddr.SocketAddr
}

func newTcpStream(queue *Queue, h handle.Handle, family proactor.Family, local, remote netaddr.SocketAddr) *TcpStream {
	return &TcpStream{sock: sock.FromHandle(h, family), queue: queue, family: family, local: local, remote: remote}
}

// AddrLocal returns the stream's local endpoint, as stored at
// construction/connect time (see Listen's Addr doc for the equivalent
// no-getsockname-query caveat this shares).
func (c *TcpStream) AddrLocal() netaddr.SocketAddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

// AddrRemote returns the stream's remote endpoint: the address most
// recently passed to Connect, or the peer address the OS reported for
// an accepted connection.
func (c *TcpStream) AddrRemote() netaddr.SocketAddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// unspecified returns the wildcard bind address for family, used by
// NewStream to satisfy the bind-before-connect requirement ConnectEx
// imposes on Windows, which this package applies unconditionally on
// both platforms rather than binding lazily inside Connect.
func unspecified(family proactor.Family) netaddr.SocketAddr {
	if family == proactor.INET6 {
		return netaddr.SocketAddr{IP: netaddr.V6([16]byte{}), Port: 0}
	}
	return netaddr.SocketAddr{IP: netaddr.V4(0, 0, 0, 0), Port: 0}
}

// NewStream creates and binds a fresh socket of the given family,
// associates it with queue, and readies it to Connect.
func NewStream(queue *Queue, family proactor.Family) (*TcpStream, error) {
	s, err := sock.New(family)
	if err != nil {
		return nil, NewError(Unknown, "create stream socket").WithContext(err)
	}
	if err := s.Bind(unspecified(family)); err != nil {
		s.Close()
		return nil, NewError(Unknown, "bind stream socket").WithContext(err)
	}
	if err := queue.Associate(s.Handle()); err != nil {
		s.Close()
		return nil, NewError(Unknown, "associate stream with queue").WithContext(err)
	}
	return &TcpStream{sock: s, queue: queue, family: family, local: unspecified(family)}, nil
}

// Connect submits a connect toward addr. Completion (success or
// failure) is delivered by a later Queue.Dequeue as an Event with
// Kind == EventConnect.
func (c *TcpStream) Connect(addr netaddr.SocketAddr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remote = addr
	st := &state{ctx: &connectContext{stream: c}}
	c.queue.register(st)
	if err := c.queue.inner.port.SubmitConnect(c.sock.Handle(), addr.ToWire(), &st.ov); err != nil {
		c.queue.unregister(st)
		return NewError(Unknown, "submit connect").WithContext(err)
	}
	return nil
}

// Dial is the common case of NewStream followed immediately by Connect.
func Dial(queue *Queue, addr netaddr.SocketAddr) (*TcpStream, error) {
	family := proactor.INET
	if addr.IP.IsV6() {
		family = proactor.INET6
	}
	c, err := NewStream(queue, family)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(addr); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Send submits a send of buf. The caller must not reuse buf until the
// matching EventSend completion is observed.
func (c *TcpStream) Send(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &state{ctx: &sendContext{stream: c, buf: buf}}
	c.queue.register(st)
	if err := c.queue.inner.port.SubmitSend(c.sock.Handle(), buf, &st.ov); err != nil {
		c.queue.unregister(st)
		return NewError(Unknown, "submit send").WithContext(err)
	}
	return nil
}

// Receive submits a receive into buf. The caller must not reuse buf
// until the matching EventReceive completion is observed. A zero-byte
// successful completion means the peer closed its side; it is reported
// as Event.N == 0, Event.Err == nil.
func (c *TcpStream) Receive(buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &state{ctx: &receiveContext{stream: c, buf: buf}}
	c.queue.register(st)
	if err := c.queue.inner.port.SubmitRecv(c.sock.Handle(), buf, &st.ov); err != nil {
		c.queue.unregister(st)
		return NewError(Unknown, "submit receive").WithContext(err)
	}
	return nil
}

// Close closes the stream's socket.
func (c *TcpStream) Close() error {
	return c.sock.Close()
}
