// Package proactor is the typed wrapper over the host's completion-port
// primitive — component 1 of the I/O completion queue design. It is the
// thin layer between the (out-of-scope, black-box) OS syscall surface and
// the rest of this module: create_port, associate, post, wait, and the
// socket/accept/connect/send/recv submission calls all live here, one
// implementation per OS behind a build tag (proactor_windows.go on
// Windows, a real IOCP; proactor_linux.go on Linux, an epoll-driven
// emulation that delivers the same one-shot completion contract).
//
// Every exported name in this package is defined in both build-tagged
// files with the same method set (Overlapped's fields differ: it wraps
// the native OVERLAPPED on Windows and is empty on Linux); callers in
// the rest of the module never branch on GOOS.
package proactor

import (
	"errors"

	"github.com/kepler-io/ioq/internal/handle"
)

// Family selects the address family a socket is created with.
type Family int

const (
	INET Family = iota
	INET6
)

// ErrPortClosed is returned by Wait when the port was closed while a
// caller was blocked waiting for a completion. On Linux it is also
// returned by Associate, Post, and the submission calls made against an
// already-closed port; on Windows only SubmitAccept checks, and the other
// calls fail with the OS's own error.
var ErrPortClosed = errors.New("proactor: port closed")

// ErrAlreadyAssociated names the failure of associating a handle that is
// already bound to a different port. Neither backend's Associate returns
// it: the Linux backend keeps bookkeeping only and does not track which
// port a handle belongs to, and the Windows backend returns nil for
// ERROR_INVALID_PARAMETER whichever port the handle is bound to.
// Associating the same handle with the same port twice is a no-op
// success.
var ErrAlreadyAssociated = errors.New("proactor: handle already associated with a different queue")

// Completion is one dequeued record: the byte count and error the OS (or
// emulation) attached to the operation, and the overlapped pointer that
// identifies which state block it belongs to. Exactly one Completion is
// produced per accepted submission, and one per Post.
//
// Aux carries a backend-specific auxiliary result that does not fit the
// byte-count/error shape: on a completed Accept, it is the handle of the
// newly connected socket.
type Completion struct {
	Bytes      uint32
	Err        error
	Overlapped *Overlapped
	Aux        handle.Handle

	// LocalAddr and RemoteAddr carry the accepted connection's local and
	// remote endpoint, encoded in netaddr's wire format (sockaddr_in /
	// sockaddr_in6), for an EventAccept completion. Nil otherwise.
	LocalAddr  []byte
	RemoteAddr []byte
}
