// Package handle defines the raw OS handle value type shared by the
// proactor shim and the socket wrapper built on top of it.
//
// A Handle carries no ownership semantics of its own — it is a thin,
// comparable wrapper over whatever integer/pointer value the host OS uses
// to name a kernel object (a HANDLE on Windows, a file descriptor on
// Linux). Ownership and close-once discipline live one layer up, in
// internal/sock.
package handle

import "fmt"

// Invalid is the sentinel raw value used by both backends to mean
// "no handle" / INVALID_SOCKET. Windows and Linux both happen to use
// all-bits-set for their respective invalid-socket sentinels.
const Invalid = ^uintptr(0)

// Handle wraps a raw OS handle/descriptor value. Equality, ordering, and
// hashing are all defined over the raw numeric value, matching the
// source library's Handle type.
type Handle struct {
	raw uintptr
}

// FromRaw wraps a raw OS value.
func FromRaw(raw uintptr) Handle { return Handle{raw: raw} }

// Raw returns the underlying OS value.
func (h Handle) Raw() uintptr { return h.raw }

// Valid reports whether the handle differs from the sentinel invalid value.
func (h Handle) Valid() bool { return h.raw != Invalid }

// Less orders handles by raw numeric value, for use as a map/tree key or
// in sorted diagnostics.
func (h Handle) Less(other Handle) bool { return h.raw < other.raw }

// String renders the raw value for logging and Debug formatting.
func (h Handle) String() string { return fmt.Sprintf("%#x", h.raw) }
