//go:build linux

package netaddr

// afINET6 matches AF_INET6 on Linux.
const afINET6 = 10
