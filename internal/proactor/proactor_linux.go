//go:build linux

package proactor

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kepler-io/ioq/internal/cqueue"
	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/netaddr"
)

// Overlapped is the pointer-identity anchor a state block embeds as its
// first field. Linux has no native equivalent of Windows' OVERLAPPED, so
// this carries nothing of its own — the pointer value is what matters,
// not its contents — but the type exists so upper layers can write
// identical code on both platforms.
type Overlapped struct{}

type opKind int

const (
	opAccept opKind = iota
	opConnect
	opRead
	opWrite
)

// pendingOp is one submitted, not-yet-completed operation, queued against
// the fd/direction it is waiting on.
type pendingOp struct {
	kind    opKind
	ov      *Overlapped
	fd      int
	acceptFD int // pre-created socket supplied to SubmitAccept, Windows-parity only; closed unused on Linux
	buf     []byte
}

type fdWaiters struct {
	read  []*pendingOp
	write []*pendingOp
	armed uint32 // epoll events currently registered for this fd
}

// Port is the Linux emulation of a completion port: a single epoll
// instance plus an eventfd used to interrupt epoll_wait on Close. One
// goroutine (started by NewPort) owns the epoll instance
// and performs every submitted syscall at the moment its fd becomes
// ready, matching the one-shot, one-completion-per-submission contract
// real IOCP gives for free.
type Port struct {
	epfd int
	wake int // eventfd, readable means "re-check registrations or exit"

	mu      sync.Mutex
	waiters map[int]*fdWaiters
	closed  bool

	completions *cqueue.Queue // holds Completion values
	wg          sync.WaitGroup
}

// NewPort creates an epoll instance and starts its dispatch goroutine.
func NewPort() (*Port, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wake, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &Port{
		epfd:        epfd,
		wake:        wake,
		waiters:     make(map[int]*fdWaiters),
		completions: cqueue.New(),
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wake, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wake),
	}); err != nil {
		unix.Close(wake)
		unix.Close(epfd)
		return nil, err
	}
	p.wg.Add(1)
	go p.dispatch()
	return p, nil
}

// Associate records fd in the port's bookkeeping; the level-triggered,
// one-shot epoll registration happens later, in rearm, when a
// submission needs to watch fd. It performs no OS-level "association" the way
// CreateIoCompletionPort does — Linux fds are associated with an epoll
// instance lazily, the first time a submission needs to watch them — so
// this call only records bookkeeping and never fails once the port is
// open.
func (p *Port) Associate(fd handle.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	if _, ok := p.waiters[int(fd.Raw())]; !ok {
		p.waiters[int(fd.Raw())] = &fdWaiters{}
	}
	return nil
}

func (p *Port) submit(fd int, dir uint32, op *pendingOp) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	w, ok := p.waiters[fd]
	if !ok {
		w = &fdWaiters{}
		p.waiters[fd] = w
	}
	if dir == unix.EPOLLIN {
		w.read = append(w.read, op)
	} else {
		w.write = append(w.write, op)
	}
	return p.rearm(fd, w)
}

// rearm (re-)registers fd's interest set with epoll from its waiting
// operations, adding the fd if it wasn't registered yet and removing it
// once nothing waits on it. An unchanged non-empty set is still
// re-registered, since EPOLLONESHOT disables the fd after every event.
// Must be called with p.mu held.
func (p *Port) rearm(fd int, w *fdWaiters) error {
	want := uint32(0)
	if len(w.read) > 0 {
		want |= unix.EPOLLIN
	}
	if len(w.write) > 0 {
		want |= unix.EPOLLOUT
	}
	if want == 0 && w.armed == 0 {
		return nil
	}
	ev := &unix.EpollEvent{Events: want | unix.EPOLLONESHOT, Fd: int32(fd)}
	op := unix.EPOLL_CTL_MOD
	if w.armed == 0 {
		op = unix.EPOLL_CTL_ADD
	}
	if want == 0 {
		op = unix.EPOLL_CTL_DEL
	}
	if op == unix.EPOLL_CTL_DEL {
		w.armed = 0
		return unix.EpollCtl(p.epfd, op, fd, nil)
	}
	if err := unix.EpollCtl(p.epfd, op, fd, ev); err != nil {
		return err
	}
	w.armed = want
	return nil
}

// SubmitAccept queues a one-shot accept on listenFD. acceptFD mirrors
// the Windows AcceptEx signature, which requires a pre-created socket to
// accept into; the Linux emulation has no use for a pre-made socket
// (accept4 always returns a fresh fd) and closes it once the real
// accepted fd is known.
func (p *Port) SubmitAccept(listenFD, acceptFD handle.Handle, ov *Overlapped) error {
	return p.submit(int(listenFD.Raw()), unix.EPOLLIN, &pendingOp{
		kind:     opAccept,
		ov:       ov,
		fd:       int(listenFD.Raw()),
		acceptFD: int(acceptFD.Raw()),
	})
}

// SubmitConnect issues a non-blocking connect(2) toward the raw sockaddr
// bytes (see netaddr for the wire layout) and queues completion
// notification for it. A non-blocking connect returns EINPROGRESS
// immediately; the fd becomes writable exactly once, whether the
// connect succeeded or failed, and SO_ERROR disambiguates the two.
func (p *Port) SubmitConnect(fd handle.Handle, sockaddr []byte, ov *Overlapped) error {
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, fd.Raw(), uintptr(unsafe.Pointer(&sockaddr[0])), uintptr(len(sockaddr)))
	if errno != 0 && errno != unix.EINPROGRESS {
		return errno
	}
	return p.submit(int(fd.Raw()), unix.EPOLLOUT, &pendingOp{
		kind: opConnect,
		ov:   ov,
		fd:   int(fd.Raw()),
	})
}

// SubmitRecv queues a one-shot read of len(buf) bytes into buf.
func (p *Port) SubmitRecv(fd handle.Handle, buf []byte, ov *Overlapped) error {
	return p.submit(int(fd.Raw()), unix.EPOLLIN, &pendingOp{
		kind: opRead,
		ov:   ov,
		fd:   int(fd.Raw()),
		buf:  buf,
	})
}

// SubmitSend queues a one-shot write of buf.
func (p *Port) SubmitSend(fd handle.Handle, buf []byte, ov *Overlapped) error {
	return p.submit(int(fd.Raw()), unix.EPOLLOUT, &pendingOp{
		kind: opWrite,
		ov:   ov,
		fd:   int(fd.Raw()),
		buf:  buf,
	})
}

// Post enqueues a user-defined completion directly, bypassing epoll
// entirely — the emulation equivalent of PostQueuedCompletionStatus.
func (p *Port) Post(ov *Overlapped, bytes uint32, err error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	p.mu.Unlock()
	p.completions.Push(Completion{Bytes: bytes, Err: err, Overlapped: ov})
	return nil
}

// Wait blocks until a completion is available or the port is closed.
func (p *Port) Wait() (Completion, error) {
	v, ok := p.completions.Pop()
	if !ok {
		return Completion{}, ErrPortClosed
	}
	return v.(Completion), nil
}

// Close stops the dispatch goroutine and wakes every blocked Wait.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var one [8]byte
	one[0] = 1
	unix.Write(p.wake, one[:])
	p.wg.Wait()
	p.completions.Close()
	unix.Close(p.wake)
	return unix.Close(p.epfd)
}

func (p *Port) dispatch() {
	defer p.wg.Done()
	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(p.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			if int(ev.Fd) == p.wake {
				p.mu.Lock()
				closed := p.closed
				p.mu.Unlock()
				if closed {
					return
				}
				var buf [8]byte
				unix.Read(p.wake, buf[:])
				continue
			}
			p.service(int(ev.Fd), ev.Events)
		}
	}
}

// service drains exactly the ready operations for fd's ready directions
// and performs each one synchronously, pushing a Completion per
// operation actually finished.
func (p *Port) service(fd int, events uint32) {
	if events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		p.serviceDir(fd, true)
	}
	if events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		p.serviceDir(fd, false)
	}
}

func (p *Port) serviceDir(fd int, readDir bool) {
	p.mu.Lock()
	w, ok := p.waiters[fd]
	if !ok {
		p.mu.Unlock()
		return
	}
	var op *pendingOp
	if readDir {
		if len(w.read) > 0 {
			op, w.read = w.read[0], w.read[1:]
		}
	} else {
		if len(w.write) > 0 {
			op, w.write = w.write[0], w.write[1:]
		}
	}
	p.mu.Unlock()
	if op == nil {
		return
	}

	c, ready := p.perform(op)
	if !ready {
		// requeued on EAGAIN; perform already re-submitted it.
		return
	}

	p.mu.Lock()
	p.rearm(fd, w)
	closed := p.closed
	p.mu.Unlock()
	if !closed {
		p.completions.Push(c)
	}
}

func (p *Port) perform(op *pendingOp) (Completion, bool) {
	switch op.kind {
	case opAccept:
		nfd, _, err := unix.Accept4(op.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN {
			p.submit(op.fd, unix.EPOLLIN, op)
			return Completion{}, false
		}
		if err != nil {
			// The pre-made socket stays open: its owner closes it when
			// the failed accept is delivered.
			return Completion{Err: err, Overlapped: op.ov}, true
		}
		if op.acceptFD != 0 {
			unix.Close(op.acceptFD)
		}
		local, _ := unix.Getsockname(nfd)
		remote, _ := unix.Getpeername(nfd)
		return Completion{
			Overlapped: op.ov,
			Aux:        handle.FromRaw(uintptr(nfd)),
			LocalAddr:  wireFromSockaddr(local),
			RemoteAddr: wireFromSockaddr(remote),
		}, true

	case opConnect:
		errno, err := unix.GetsockoptInt(op.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return Completion{Err: err, Overlapped: op.ov}, true
		}
		if errno != 0 {
			return Completion{Err: unix.Errno(errno), Overlapped: op.ov}, true
		}
		return Completion{Overlapped: op.ov}, true

	case opRead:
		n, err := unix.Read(op.fd, op.buf)
		if err == unix.EAGAIN {
			p.submit(op.fd, unix.EPOLLIN, op)
			return Completion{}, false
		}
		if err != nil {
			return Completion{Err: err, Overlapped: op.ov}, true
		}
		return Completion{Bytes: uint32(n), Overlapped: op.ov}, true

	case opWrite:
		n, err := unix.Write(op.fd, op.buf)
		if err == unix.EAGAIN {
			p.submit(op.fd, unix.EPOLLOUT, op)
			return Completion{}, false
		}
		if err != nil {
			return Completion{Err: err, Overlapped: op.ov}, true
		}
		return Completion{Bytes: uint32(n), Overlapped: op.ov}, true
	}
	return Completion{}, false
}

// wireFromSockaddr re-encodes a unix.Sockaddr (as returned by
// Getsockname/Getpeername) into netaddr's wire format, so both proactor
// backends hand the root package raw bytes it decodes the same way
// regardless of platform.
func wireFromSockaddr(sa unix.Sockaddr) []byte {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return netaddr.SocketAddr{IP: netaddr.V4(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), Port: uint16(a.Port)}.ToWire()
	case *unix.SockaddrInet6:
		return netaddr.SocketAddr{IP: netaddr.V6(a.Addr), Port: uint16(a.Port)}.ToWire()
	default:
		return nil
	}
}

// NewSocket creates a non-blocking TCP socket of the given family.
func NewSocket(f Family) (handle.Handle, error) {
	domain := unix.AF_INET
	if f == INET6 {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return handle.Handle{}, err
	}
	return handle.FromRaw(uintptr(fd)), nil
}
