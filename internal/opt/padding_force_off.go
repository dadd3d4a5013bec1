//go:build bakery_disable_padding && !bakery_enable_padding

package opt

// Cell_ is one per-thread slot of the bakery lock.
// Padding is force-disabled via the bakery_disable_padding build tag.
// Use: go build -tags=bakery_disable_padding
type Cell_ struct {
	V uint32
}
