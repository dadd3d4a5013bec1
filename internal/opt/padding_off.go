//go:build (amd64 || 386 || arm || mips || mipsle || wasm) && !bakery_disable_padding && !bakery_enable_padding

package opt

// Cell_ is one per-thread slot of the bakery lock (a choosing flag or a
// ticket), accessed atomically.
// Padding is disabled by default for:
// - amd64
// - 32-bit architectures (386, arm, mips, mipsle, wasm)
type Cell_ struct {
	V uint32
}
