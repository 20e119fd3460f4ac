//go:build !unix

package gc

// osPageSize is the portable fallback used on platforms where
// golang.org/x/sys/unix is unavailable.
func osPageSize() int {
	return 4096
}
