//go:build linux

package proactor_test

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/internal/proactor"
	"github.com/kepler-io/ioq/netaddr"
)

func mustListener(t *testing.T) (handle.Handle, uint16) {
	t.Helper()
	fd, err := proactor.NewSocket(proactor.INET)
	if err != nil {
		t.Fatalf("NewSocket: %v", err)
	}
	sa := &unix.SockaddrInet4{Port: 0}
	copy(sa.Addr[:], []byte{127, 0, 0, 1})
	if err := unix.Bind(int(fd.Raw()), sa); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := unix.Listen(int(fd.Raw()), 16); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	got, err := unix.Getsockname(int(fd.Raw()))
	if err != nil {
		t.Fatalf("Getsockname: %v", err)
	}
	return fd, uint16(got.(*unix.SockaddrInet4).Port)
}

func sockaddrBytes(port uint16) []byte {
	b := make([]byte, 16)
	b[0] = byte(unix.AF_INET)
	b[1] = 0
	b[2] = byte(port >> 8)
	b[3] = byte(port)
	b[4], b[5], b[6], b[7] = 127, 0, 0, 1
	return b
}

func TestAcceptConnectSendRecvRoundTrip(t *testing.T) {
	port, err := proactor.NewPort()
	if err != nil {
		t.Fatalf("NewPort: %v", err)
	}
	defer port.Close()

	listenFD, listenPort := mustListener(t)
	if err := port.Associate(listenFD); err != nil {
		t.Fatalf("Associate listener: %v", err)
	}

	acceptSock, err := proactor.NewSocket(proactor.INET)
	if err != nil {
		t.Fatalf("NewSocket (pre-accept): %v", err)
	}
	acceptOv := &proactor.Overlapped{}
	if err := port.SubmitAccept(listenFD, acceptSock, acceptOv); err != nil {
		t.Fatalf("SubmitAccept: %v", err)
	}

	clientFD, err := proactor.NewSocket(proactor.INET)
	if err != nil {
		t.Fatalf("NewSocket (client): %v", err)
	}
	if err := port.Associate(clientFD); err != nil {
		t.Fatalf("Associate client: %v", err)
	}
	connectOv := &proactor.Overlapped{}
	if err := port.SubmitConnect(clientFD, sockaddrBytes(listenPort), connectOv); err != nil {
		t.Fatalf("SubmitConnect: %v", err)
	}

	seen := map[*proactor.Overlapped]bool{}
	var acceptedPeer handle.Handle
	for len(seen) < 2 {
		c, err := port.Wait()
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if c.Err != nil {
			t.Fatalf("completion error for %p: %v", c.Overlapped, c.Err)
		}
		switch c.Overlapped {
		case acceptOv:
			acceptedPeer = c.Aux
			remote, err := netaddr.FromWire(c.RemoteAddr)
			if err != nil {
				t.Fatalf("FromWire(RemoteAddr): %v", err)
			}
			if remote.IP.String() != "127.0.0.1" {
				t.Fatalf("accept remote addr = %s, want 127.0.0.1", remote.IP)
			}
		case connectOv:
		default:
			t.Fatalf("unexpected overlapped pointer %p", c.Overlapped)
		}
		seen[c.Overlapped] = true
	}
	if !acceptedPeer.Valid() {
		t.Fatal("accept completion carried no accepted handle")
	}
	if err := port.Associate(acceptedPeer); err != nil {
		t.Fatalf("Associate accepted peer: %v", err)
	}

	sendBuf := []byte("hello")
	sendOv := &proactor.Overlapped{}
	if err := port.SubmitSend(clientFD, sendBuf, sendOv); err != nil {
		t.Fatalf("SubmitSend: %v", err)
	}

	recvBuf := make([]byte, 16)
	recvOv := &proactor.Overlapped{}
	if err := port.SubmitRecv(acceptedPeer, recvBuf, recvOv); err != nil {
		t.Fatalf("SubmitRecv: %v", err)
	}

	var gotBytes uint32
	deadline := time.Now().Add(2 * time.Second)
	for {
		c, err := port.Wait()
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if c.Overlapped == recvOv {
			gotBytes = c.Bytes
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for receive completion")
		}
	}
	if string(recvBuf[:gotBytes]) != "hello" {
		t.Fatalf("received %q, want %q", recvBuf[:gotBytes], "hello")
	}
}
