package ioq_test

import (
	"testing"
	"time"

	"github.com/kepler-io/ioq"
	"github.com/kepler-io/ioq/netaddr"
)

// stash keeps, per queue, the events waitFor dequeued while looking for
// another kind, so a later waitFor for their kind still finds them:
// completions from different sockets arrive in no fixed order.
var stash = map[*ioq.Queue][]ioq.Event{}

func waitFor(t *testing.T, q *ioq.Queue, kind ioq.EventKind) ioq.Event {
	t.Helper()
	for i, ev := range stash[q] {
		if ev.Kind == kind {
			stash[q] = append(stash[q][:i], stash[q][i+1:]...)
			return ev
		}
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		ev, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if ev.Kind == kind {
			return ev
		}
		stash[q] = append(stash[q], ev)
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}

// Scenario 2 & 3: listen, accept, echo one round trip.
func TestListenAcceptEcho(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	// A fixed port: Addr reports the address given to Listen, so port 0
	// would leave Dial without a port to connect to.
	ln, err := ioq.Listen(q, netaddr.SocketAddr{IP: netaddr.V4(127, 0, 0, 1), Port: 39071})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	if err := ln.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	client, err := ioq.Dial(q, ln.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	waitFor(t, q, ioq.EventConnect)
	acceptEv := waitFor(t, q, ioq.EventAccept)
	if acceptEv.Err != nil {
		t.Fatalf("accept completed with error: %v", acceptEv.Err)
	}
	server := acceptEv.Stream
	defer server.Close()

	if got := server.AddrRemote().IP.String(); got != "127.0.0.1" {
		t.Fatalf("server.AddrRemote().IP = %q, want 127.0.0.1", got)
	}

	if err := client.Send([]byte("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	recvBuf := make([]byte, 1024)
	if err := server.Receive(recvBuf); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	recvEv := waitFor(t, q, ioq.EventReceive)
	if recvEv.Err != nil {
		t.Fatalf("receive completed with error: %v", recvEv.Err)
	}
	if recvEv.N != 2 || string(recvBuf[:recvEv.N]) != "hi" {
		t.Fatalf("received %q (n=%d), want \"hi\" (n=2)", recvBuf[:recvEv.N], recvEv.N)
	}

	sendEv := waitFor(t, q, ioq.EventSend)
	if sendEv.Err != nil {
		t.Fatalf("send completed with error: %v", sendEv.Err)
	}
}

// Scenario 4: graceful close surfaces a zero-byte successful receive.
func TestGracefulCloseYieldsZeroByteReceive(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	ln, err := ioq.Listen(q, netaddr.SocketAddr{IP: netaddr.V4(127, 0, 0, 1), Port: 39072})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	if err := ln.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	client, err := ioq.Dial(q, ln.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	waitFor(t, q, ioq.EventConnect)
	acceptEv := waitFor(t, q, ioq.EventAccept)
	server := acceptEv.Stream

	client.Close() // close the client; the server then reads the peer's FIN

	buf := make([]byte, 16)
	if err := server.Receive(buf); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	recvEv := waitFor(t, q, ioq.EventReceive)
	if recvEv.Err != nil {
		t.Fatalf("receive after peer close returned an error: %v", recvEv.Err)
	}
	if recvEv.N != 0 {
		t.Fatalf("N = %d, want 0 after graceful close", recvEv.N)
	}
	server.Close()
}

// Scenario 6: a submission failure returns Err synchronously and
// produces no event.
func TestListenOnUnbindableAddressFails(t *testing.T) {
	q, err := ioq.NewQueue()
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	defer q.Close()

	_, err = ioq.Listen(q, netaddr.SocketAddr{IP: netaddr.V4(1, 2, 3, 4), Port: 65535})
	if err == nil {
		t.Fatal("expected Listen on an unbindable address to fail")
	}
}
