//go:build !rhmap_opt_cachelinesize_32 && !rhmap_opt_cachelinesize_64 && !rhmap_opt_cachelinesize_128

package rhmap

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is used to size the smallest non-empty bucket array.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
