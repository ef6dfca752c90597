// Package affinity pins the calling goroutine's OS thread to a specific
// CPU. Nothing else in this module calls it; in particular the Linux
// emulated proactor's dispatch goroutine is not pinned.
package affinity

import "runtime"

// Pin locks the calling goroutine to its current OS thread (via
// runtime.LockOSThread) and restricts that thread to run only on cpu.
// On failure the thread lock is released before returning. Callers that
// no longer need the restriction should call runtime.UnlockOSThread.
func Pin(cpu int) error {
	runtime.LockOSThread()
	if err := pinPlatform(cpu); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}
