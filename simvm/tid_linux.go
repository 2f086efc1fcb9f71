//go:build linux

package simvm

import "golang.org/x/sys/unix"

// Supported returns true if the platform has exact OS thread identity.
func Supported() (bool, error) {
	return true, nil
}

// gettid returns the OS thread id of the calling thread.
func gettid() int {
	return unix.Gettid()
}
