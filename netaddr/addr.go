// Package netaddr provides the small IpAddr/SocketAddr value types used
// throughout this module, plus their conversion to and from the raw
// wire layout the OS socket APIs expect (sockaddr_in / sockaddr_in6).
//
// This is deliberately not net.IP/net.TCPAddr: the wire conversion needs
// to be bit-exact (family, network-byte-order port, zeroed flowinfo and
// scope on IPv6) and self-contained, since both the Windows and Linux
// proactor backends consume the raw bytes this package produces directly
// rather than going through a parsed address object.
package netaddr

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// IpAddr is either a 4-byte IPv4 or 16-byte IPv6 address.
type IpAddr struct {
	bytes []byte // len 4 or 16
}

// V4 constructs an IPv4 address from its four octets.
func V4(a, b, c, d byte) IpAddr {
	return IpAddr{bytes: []byte{a, b, c, d}}
}

// V6 constructs an IPv6 address from its sixteen octets.
func V6(b [16]byte) IpAddr {
	cp := make([]byte, 16)
	copy(cp, b[:])
	return IpAddr{bytes: cp}
}

// ParseIP parses a textual IPv4 or IPv6 address.
func ParseIP(s string) (IpAddr, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return IpAddr{}, fmt.Errorf("netaddr: invalid IP address %q", s)
	}
	if v4 := ip.To4(); v4 != nil {
		return V4(v4[0], v4[1], v4[2], v4[3]), nil
	}
	var b [16]byte
	copy(b[:], ip.To16())
	return V6(b), nil
}

// Bytes returns the raw 4 or 16 address octets.
func (a IpAddr) Bytes() []byte { return a.bytes }

// IsV4 reports whether this is a 4-byte address.
func (a IpAddr) IsV4() bool { return len(a.bytes) == 4 }

// IsV6 reports whether this is a 16-byte address.
func (a IpAddr) IsV6() bool { return len(a.bytes) == 16 }

// String renders the address in standard textual form.
func (a IpAddr) String() string {
	if len(a.bytes) == 0 {
		return "<nil>"
	}
	return net.IP(a.bytes).String()
}

// SocketAddr pairs an IpAddr with a port.
type SocketAddr struct {
	IP   IpAddr
	Port uint16
}

// ParseSocketAddr parses a "host:port" string, the form the sample
// programs accept on their command line.
func ParseSocketAddr(s string) (SocketAddr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return SocketAddr{}, fmt.Errorf("netaddr: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return SocketAddr{}, fmt.Errorf("netaddr: invalid port %q: %w", portStr, err)
	}
	ip, err := ParseIP(host)
	if err != nil {
		return SocketAddr{}, err
	}
	return SocketAddr{IP: ip, Port: uint16(port)}, nil
}

// String renders "ip:port", bracketing IPv6 addresses.
func (s SocketAddr) String() string {
	if s.IP.IsV6() {
		return fmt.Sprintf("[%s]:%d", s.IP, s.Port)
	}
	return fmt.Sprintf("%s:%d", s.IP, s.Port)
}

// afINET matches AF_INET on both Windows and Linux. afINET6 does not
// share that luck — Windows' AF_INET6 is 23, Linux's is 10 — so it is
// defined per-GOOS in addr_linux.go / addr_windows.go.
const afINET = 2

// sockaddrIn4Len and sockaddrIn6Len are the wire sizes the original
// implementation uses: sockaddr_in is family(2)+port(2)+addr(4)+zero(8);
// sockaddr_in6 is family(2)+port(2)+flowinfo(4)+addr(16)+scope(4).
const (
	sockaddrIn4Len = 16
	sockaddrIn6Len = 28
)

// ToWire encodes s as a raw sockaddr_in/sockaddr_in6, exactly the layout
// AcceptEx/ConnectEx/bind/connect expect on the wire: little-endian
// family, big-endian (network byte order) port, zeroed padding/flowinfo/
// scope fields.
func (s SocketAddr) ToWire() []byte {
	if s.IP.IsV6() {
		b := make([]byte, sockaddrIn6Len)
		binary.LittleEndian.PutUint16(b[0:2], afINET6)
		binary.BigEndian.PutUint16(b[2:4], s.Port)
		// b[4:8] flowinfo left zero
		copy(b[8:24], s.IP.bytes)
		// b[24:28] scope id left zero
		return b
	}
	b := make([]byte, sockaddrIn4Len)
	binary.LittleEndian.PutUint16(b[0:2], afINET)
	binary.BigEndian.PutUint16(b[2:4], s.Port)
	copy(b[4:8], s.IP.bytes)
	// b[8:16] zero padding
	return b
}

// FromWire decodes a raw sockaddr_in/sockaddr_in6 produced by the OS
// (e.g. returned alongside an accepted connection) back into a
// SocketAddr.
func FromWire(b []byte) (SocketAddr, error) {
	if len(b) < 4 {
		return SocketAddr{}, fmt.Errorf("netaddr: sockaddr too short: %d bytes", len(b))
	}
	family := binary.LittleEndian.Uint16(b[0:2])
	port := binary.BigEndian.Uint16(b[2:4])
	switch family {
	case afINET:
		if len(b) < sockaddrIn4Len {
			return SocketAddr{}, fmt.Errorf("netaddr: truncated sockaddr_in: %d bytes", len(b))
		}
		return SocketAddr{IP: V4(b[4], b[5], b[6], b[7]), Port: port}, nil
	case afINET6:
		if len(b) < sockaddrIn6Len {
			return SocketAddr{}, fmt.Errorf("netaddr: truncated sockaddr_in6: %d bytes", len(b))
		}
		var addr [16]byte
		copy(addr[:], b[8:24])
		return SocketAddr{IP: V6(addr), Port: port}, nil
	default:
		return SocketAddr{}, fmt.Errorf("netaddr: unknown address family %d", family)
	}
}
