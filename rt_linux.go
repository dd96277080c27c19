//go:build linux

package conveyor

import (
	"golang.org/x/sys/unix"
)

// LockMemory pins current and future pages to prevent paging on the RT
// path. Requires CAP_IPC_LOCK; callers treat failure as a warning.
func LockMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}

// SetRealtime requests SCHED_FIFO at the given static priority for the
// calling thread. The caller must have locked the goroutine to its OS
// thread. Requires CAP_SYS_NICE; callers treat failure as a warning and run
// at the default priority.
func SetRealtime(priority int) error {
	attr := &unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	return unix.SchedSetAttr(0, attr, 0)
}
