//go:build linux

package ioq

// Linux sockets need no process-wide initialization analogous to
// WSAStartup; both hooks are no-ops, kept only so init.go's refcounting
// is platform-uniform.
func platformInit() error     { return nil }
func platformTeardown() error { return nil }
