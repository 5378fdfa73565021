// Package sched asks the kernel for realtime scheduling of the sample threads.
package sched

import "errors"

var ErrUnsupported = errors.New("realtime scheduling is not supported on this platform")
