package ioq

import "sync"

var (
	initMu    sync.Mutex
	initCount int
)

// InitGuard represents one holder of the process-wide network
// initialization (WSAStartup on Windows; a no-op on Linux, which needs
// none). Init is reference-counted: the underlying OS state is torn
// down only once every InitGuard returned by Init has been closed.
type InitGuard struct {
	closed bool
}

// Init performs process-wide network initialization if this is the
// first outstanding guard, and returns a handle the caller must Close
// when done with networking.
func Init() (*InitGuard, error) {
	initMu.Lock()
	defer initMu.Unlock()
	if initCount == 0 {
		if err := platformInit(); err != nil {
			return nil, NewError(Unknown, "network init").WithContext(err)
		}
	}
	initCount++
	return &InitGuard{}, nil
}

// Close releases this guard's share of the process-wide network
// initialization. Calling Close twice on the same guard is a no-op.
func (g *InitGuard) Close() error {
	initMu.Lock()
	defer initMu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	initCount--
	if initCount == 0 {
		return platformTeardown()
	}
	return nil
}
