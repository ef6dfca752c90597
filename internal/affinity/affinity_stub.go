//go:build !linux && !windows

package affinity

import "fmt"

// pinPlatform reports NotImplemented on platforms with neither a Linux
// nor a Windows proactor backend.
func pinPlatform(cpu int) error {
	return fmt.Errorf("affinity: Pin not implemented on this platform")
}
