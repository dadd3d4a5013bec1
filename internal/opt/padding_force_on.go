//go:build bakery_enable_padding

package opt

import (
	"unsafe"
)

// Cell_ is one per-thread slot of the bakery lock.
// Padding is force-enabled via the bakery_enable_padding build tag.
// Use: go build -tags=bakery_enable_padding
type Cell_ struct {
	V uint32
	_ [(CacheLineSize_ - unsafe.Sizeof(struct {
		V uint32
	}{})%CacheLineSize_) % CacheLineSize_]byte
}
