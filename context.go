package ioq

import (
	"github.com/kepler-io/ioq/internal/proactor"
	"github.com/kepler-io/ioq/internal/sock"
	"github.com/kepler-io/ioq/netaddr"
)

// context is the polymorphic payload a state block carries: exactly one
// of customContext, acceptContext, connectContext, sendContext, or
// receiveContext, matching the source library's Context enum. Each
// variant knows how to turn the raw proactor.Completion it eventually
// receives into the uniform Event the public API returns.
type context interface {
	intoEvent(c proactor.Completion) Event
}

type customContext struct {
	fn func()
}

func (c *customContext) intoEvent(comp proactor.Completion) Event {
	// The callable executes exactly once, here, before the event is
	// returned from Dequeue (P4).
	c.fn()
	return Event{Kind: EventCustom, Err: comp.Err}
}

type acceptContext struct {
	listener   *TcpListener
	acceptSock *sock.Socket
}

func (c *acceptContext) intoEvent(comp proactor.Completion) Event {
	if comp.Err != nil {
		c.acceptSock.Close()
		return Event{Kind: EventAccept, Err: comp.Err, Listener: c.listener}
	}
	// Post-accept re-association: the freshly accepted handle joins the
	// queue only now, inside the completion handler, not at submission
	// time.
	if err := c.listener.queue.Associate(comp.Aux); err != nil {
		return Event{Kind: EventAccept, Err: err, Listener: c.listener}
	}
	// Local/remote addresses come back from the OS alongside the accept
	// completion; a parse failure here is not fatal to the accept itself,
	// it just leaves the corresponding address at its zero value.
	local, _ := netaddr.FromWire(comp.LocalAddr)
	remote, _ := netaddr.FromWire(comp.RemoteAddr)
	stream := newTcpStream(c.listener.queue, comp.Aux, c.listener.family, local, remote)
	return Event{Kind: EventAccept, Listener: c.listener, Stream: stream}
}

type connectContext struct {
	stream *TcpStream
}

func (c *connectContext) intoEvent(comp proactor.Completion) Event {
	return Event{Kind: EventConnect, Err: comp.Err, Stream: c.stream}
}

type sendContext struct {
	stream *TcpStream
	buf    []byte
}

func (c *sendContext) intoEvent(comp proactor.Completion) Event {
	return Event{Kind: EventSend, N: int(comp.Bytes), Err: comp.Err, Stream: c.stream}
}

type receiveContext struct {
	stream *TcpStream
	buf    []byte
}

func (c *receiveContext) intoEvent(comp proactor.Completion) Event {
	return Event{Kind: EventReceive, N: int(comp.Bytes), Err: comp.Err, Stream: c.stream}
}
