//go:build linux

package sock

import (
	"golang.org/x/sys/unix"

	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/netaddr"
)

func bindPlatform(h handle.Handle, addr netaddr.SocketAddr) error {
	fd := int(h.Raw())
	// SO_REUSEADDR matches the teacher's listener setup, letting a
	// restarted listener rebind a recently closed port.
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if addr.IP.IsV6() {
		var sa unix.SockaddrInet6
		sa.Port = int(addr.Port)
		copy(sa.Addr[:], addr.IP.Bytes())
		return unix.Bind(fd, &sa)
	}
	var sa unix.SockaddrInet4
	sa.Port = int(addr.Port)
	copy(sa.Addr[:], addr.IP.Bytes())
	return unix.Bind(fd, &sa)
}

func listenPlatform(h handle.Handle, backlog int) error {
	return unix.Listen(int(h.Raw()), backlog)
}

func closePlatform(h handle.Handle) error {
	return unix.Close(int(h.Raw()))
}
