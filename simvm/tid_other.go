//go:build !linux

package simvm

import "fmt"

// Supported returns false on platforms without a cheap thread identity.
func Supported() (bool, error) {
	return false, fmt.Errorf("simvm: no exact thread identity on this platform")
}

// gettid returns -1 on platforms without a cheap thread identity.
// CurrentThread then hands out a fresh attached handle per call and
// carriers cannot be recognized as the caller.
func gettid() int {
	return -1
}
