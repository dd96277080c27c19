//go:build !linux

package conveyor

import "errors"

var errNoRT = errors.New("real-time scheduling is only supported on Linux")

func LockMemory() error {
	return errNoRT
}

func SetRealtime(priority int) error {
	return errNoRT
}
