//go:build linux

package affinity

import "golang.org/x/sys/unix"

// pinPlatform uses sched_setaffinity directly via golang.org/x/sys/unix,
// replacing the teacher's cgo binding to pthread_setaffinity_np: this
// is the pure-Go equivalent for the calling thread (pid 0 means "the
// calling thread" to sched_setaffinity).
func pinPlatform(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
