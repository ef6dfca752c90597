//go:build windows

package sock

import (
	"golang.org/x/sys/windows"

	"github.com/kepler-io/ioq/internal/handle"
	"github.com/kepler-io/ioq/netaddr"
)

func bindPlatform(h handle.Handle, addr netaddr.SocketAddr) error {
	s := windows.Handle(h.Raw())
	windows.SetsockoptInt(s, windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	if addr.IP.IsV6() {
		var sa windows.SockaddrInet6
		sa.Port = int(addr.Port)
		copy(sa.Addr[:], addr.IP.Bytes())
		return windows.Bind(s, &sa)
	}
	var sa windows.SockaddrInet4
	sa.Port = int(addr.Port)
	copy(sa.Addr[:], addr.IP.Bytes())
	return windows.Bind(s, &sa)
}

func listenPlatform(h handle.Handle, backlog int) error {
	return windows.Listen(windows.Handle(h.Raw()), backlog)
}

func closePlatform(h handle.Handle) error {
	return windows.Closesocket(windows.Handle(h.Raw()))
}
