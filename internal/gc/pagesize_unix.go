//go:build unix

package gc

import "golang.org/x/sys/unix"

// osPageSize returns the OS page size. New records it on the Heap and
// PageSize reports it; allocation accounting and the collection threshold
// do not depend on it.
func osPageSize() int {
	return unix.Getpagesize()
}
