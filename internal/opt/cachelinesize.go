//go:build !bakery_cachelinesize_32 && !bakery_cachelinesize_64 && !bakery_cachelinesize_128 && !bakery_cachelinesize_256

package opt

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize_ is used in slot padding to prevent false sharing between
// the owner of a slot and the goroutines spinning on it.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize_ = unsafe.Sizeof(cpu.CacheLinePad{})
