//go:build windows

package proactor

import (
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/kepler-io/ioq/internal/handle"
)

// Overlapped embeds the real Windows OVERLAPPED structure as its first
// field, so the address of an Overlapped value is exactly the LPOVERLAPPED
// the kernel round-trips back through GetQueuedCompletionStatus.
type Overlapped struct {
	windows.Overlapped
}

var (
	modMswsock   = windows.NewLazySystemDLL("mswsock.dll")
	procAcceptEx = modMswsock.NewProc("AcceptEx")

	wsaidConnectEx = windows.GUID{
		Data1: 0x25a207b9, Data2: 0xddf3, Data3: 0x4660,
		Data4: [8]byte{0x8e, 0xe9, 0x76, 0xe5, 0x8c, 0x74, 0x06, 0x3e},
	}

	connectExOnce sync.Once
	connectExFn   uintptr
	connectExErr  error
)

// addrLen is the scratch size AcceptEx requires per endpoint: a
// sockaddr large enough for IPv6 plus 16 bytes of required slack.
const addrLen = 16 + 2 + 16 + 4 + 8

// acceptState tracks the bookkeeping AcceptEx needs beyond the
// completion itself: the pre-created socket being accepted into, and
// the local/remote address scratch buffer the kernel writes into.
type acceptState struct {
	acceptFD handle.Handle
	addrBuf  [addrLen * 2]byte
}

// Port wraps a single Windows I/O completion port.
type Port struct {
	h windows.Handle

	mu      sync.Mutex
	pending map[*Overlapped]*acceptState
	closed  bool
}

// NewPort creates a fresh completion port not yet associated with any
// handle.
func NewPort() (*Port, error) {
	h, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return &Port{h: h, pending: make(map[*Overlapped]*acceptState)}, nil
}

// Associate binds fd to the port. Re-associating an fd is rejected by
// the kernel with ERROR_INVALID_PARAMETER, which Associate treats as
// already-associated and reports as success; the same applies when fd
// is bound to a different port.
func (p *Port) Associate(fd handle.Handle) error {
	_, err := windows.CreateIoCompletionPort(windows.Handle(fd.Raw()), p.h, 0, 0)
	if err != nil {
		if err == windows.ERROR_INVALID_PARAMETER {
			return nil
		}
		return err
	}
	return nil
}

func lookupConnectEx(s windows.Handle) (uintptr, error) {
	connectExOnce.Do(func() {
		var out uintptr
		var n uint32
		connectExErr = windows.WSAIoctl(
			s,
			windows.SIO_GET_EXTENSION_FUNCTION_POINTER,
			(*byte)(unsafe.Pointer(&wsaidConnectEx)),
			uint32(unsafe.Sizeof(wsaidConnectEx)),
			(*byte)(unsafe.Pointer(&out)),
			uint32(unsafe.Sizeof(out)),
			&n,
			nil,
			0,
		)
		connectExFn = out
	})
	return connectExFn, connectExErr
}

// SubmitAccept issues AcceptEx on listenFD, accepting into the
// already-created acceptFD socket. The completion, once dequeued via
// Wait, carries acceptFD back as Aux.
func (p *Port) SubmitAccept(listenFD, acceptFD handle.Handle, ov *Overlapped) error {
	st := &acceptState{acceptFD: acceptFD}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	p.pending[ov] = st
	p.mu.Unlock()

	var bytes uint32
	r1, _, err := procAcceptEx.Call(
		uintptr(listenFD.Raw()),
		uintptr(acceptFD.Raw()),
		uintptr(unsafe.Pointer(&st.addrBuf[0])),
		0,
		uintptr(addrLen),
		uintptr(addrLen),
		uintptr(unsafe.Pointer(&bytes)),
		uintptr(unsafe.Pointer(ov)),
	)
	if r1 == 0 && err != windows.ERROR_IO_PENDING {
		p.mu.Lock()
		delete(p.pending, ov)
		p.mu.Unlock()
		return err
	}
	return nil
}

// SubmitConnect issues ConnectEx on an already-bound fd toward the raw
// sockaddr bytes (see netaddr for the wire layout).
func (p *Port) SubmitConnect(fd handle.Handle, sockaddr []byte, ov *Overlapped) error {
	fn, err := lookupConnectEx(windows.Handle(fd.Raw()))
	if err != nil {
		return err
	}
	var bytes uint32
	r1, _, callErr := syscall.SyscallN(fn,
		uintptr(fd.Raw()),
		uintptr(unsafe.Pointer(&sockaddr[0])),
		uintptr(len(sockaddr)),
		0, 0,
		uintptr(unsafe.Pointer(&bytes)),
		uintptr(unsafe.Pointer(ov)),
	)
	if r1 == 0 && callErr != uintptr(windows.ERROR_IO_PENDING) {
		return syscall.Errno(callErr)
	}
	return nil
}

// SubmitRecv issues WSARecv into buf.
func (p *Port) SubmitRecv(fd handle.Handle, buf []byte, ov *Overlapped) error {
	wsabuf := windows.WSABuf{Len: uint32(len(buf)), Buf: bufPtr(buf)}
	var bytes, flags uint32
	err := windows.WSARecv(windows.Handle(fd.Raw()), &wsabuf, 1, &bytes, &flags, &ov.Overlapped, nil)
	if err != nil && err != windows.WSA_IO_PENDING {
		return err
	}
	return nil
}

// SubmitSend issues WSASend of buf.
func (p *Port) SubmitSend(fd handle.Handle, buf []byte, ov *Overlapped) error {
	wsabuf := windows.WSABuf{Len: uint32(len(buf)), Buf: bufPtr(buf)}
	var bytes uint32
	err := windows.WSASend(windows.Handle(fd.Raw()), &wsabuf, 1, &bytes, 0, &ov.Overlapped, nil)
	if err != nil && err != windows.WSA_IO_PENDING {
		return err
	}
	return nil
}

// Post enqueues a user completion via PostQueuedCompletionStatus.
func (p *Port) Post(ov *Overlapped, bytes uint32, err error) error {
	var code uint32
	if err != nil {
		if eno, ok := err.(windows.Errno); ok {
			code = uint32(eno)
		} else {
			code = 1
		}
	}
	return windows.PostQueuedCompletionStatus(p.h, bytes, uintptr(code), &ov.Overlapped)
}

// Wait blocks on GetQueuedCompletionStatus and translates the result
// into a Completion.
func (p *Port) Wait() (Completion, error) {
	var bytes uint32
	var key uintptr
	var lpOv *windows.Overlapped
	err := windows.GetQueuedCompletionStatus(p.h, &bytes, &key, &lpOv, windows.INFINITE)
	if lpOv == nil {
		return Completion{}, ErrPortClosed
	}
	ov := (*Overlapped)(unsafe.Pointer(lpOv))

	p.mu.Lock()
	st, hadAccept := p.pending[ov]
	delete(p.pending, ov)
	p.mu.Unlock()

	c := Completion{Bytes: bytes, Overlapped: ov}
	if err != nil {
		c.Err = err
	}
	if hadAccept {
		c.Aux = st.acceptFD
		// AcceptEx writes [local sockaddr][remote sockaddr] back to back
		// into addrBuf; both slots use the real native SOCKADDR_IN/
		// SOCKADDR_IN6 layout, which is bit-identical to netaddr's wire
		// format.
		c.LocalAddr = st.addrBuf[:addrLen]
		c.RemoteAddr = st.addrBuf[addrLen : 2*addrLen]
	}
	return c, nil
}

// Close tears down the completion port. In-flight operations still
// complete; GetQueuedCompletionStatus on a closed handle returns an
// error, which Wait surfaces as ErrPortClosed.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return windows.CloseHandle(p.h)
}

// NewSocket creates an overlapped-mode TCP socket of the given family.
func NewSocket(f Family) (handle.Handle, error) {
	af := windows.AF_INET
	if f == INET6 {
		af = windows.AF_INET6
	}
	s, err := windows.WSASocket(int32(af), windows.SOCK_STREAM, windows.IPPROTO_TCP, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		return handle.Handle{}, err
	}
	return handle.FromRaw(uintptr(s)), nil
}

func bufPtr(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}
