//go:build windows

package netaddr

// afINET6 matches AF_INET6 on Windows — the family AcceptEx's addr
// scratch and ConnectEx's sockaddr argument both carry on the wire.
const afINET6 = 23
