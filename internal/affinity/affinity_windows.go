//go:build windows

package affinity

import "golang.org/x/sys/windows"

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask = modkernel32.NewProc("SetThreadAffinityMask")
)

// pinPlatform calls SetThreadAffinityMask on the current thread,
// matching the teacher's Windows affinity implementation.
func pinPlatform(cpu int) error {
	mask := uintptr(1) << uint(cpu)
	h, err := windows.GetCurrentThread()
	if err != nil {
		return err
	}
	r1, _, callErr := procSetThreadAffinityMask.Call(uintptr(h), mask)
	if r1 == 0 {
		return callErr
	}
	return nil
}
