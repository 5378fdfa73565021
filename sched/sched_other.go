//go:build !linux

package sched

func EnableRealtime() error {
	return ErrUnsupported
}
