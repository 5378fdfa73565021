//go:build linux

package sched

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Priority used for SCHED_FIFO; low enough to leave room for kernel threads.
const Priority = 10

// EnableRealtime switches the calling process to SCHED_FIFO. It usually needs
// root or CAP_SYS_NICE; callers treat failure as a warning.
func EnableRealtime() error {
	attr := unix.SchedAttr{
		Size:     uint32(unsafe.Sizeof(unix.SchedAttr{})),
		Policy:   unix.SCHED_FIFO,
		Priority: Priority,
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("could not enable SCHED_FIFO: %w", err)
	}
	return nil
}
