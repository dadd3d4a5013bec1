//go:build !(amd64 || 386 || arm || mips || mipsle || wasm) && !bakery_disable_padding && !bakery_enable_padding

package opt

import (
	"unsafe"
)

// Cell_ is one per-thread slot of the bakery lock (a choosing flag or a
// ticket), accessed atomically.
// Padding is automatically enabled for architectures that are NOT:
// - amd64 (x86_64): Hardware optimizations often make padding less critical
// - 32-bit architectures (386, arm, mips, mipsle, wasm): Smaller cache lines/memory constraints
//
// Enabled for: arm64, s390x, ppc64, ppc64le, riscv64, loong64, mips64, mips64le, etc.
type Cell_ struct {
	V uint32
	_ [(CacheLineSize_ - unsafe.Sizeof(struct {
		V uint32
	}{})%CacheLineSize_) % CacheLineSize_]byte
}
