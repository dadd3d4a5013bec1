//go:build bakery_fake_fence_1

package opt

// FakeFence1_ downgrades the ordering of the choosing store that precedes
// the ticket scan to a plain store.
// Use: go test -race -tags=bakery_fake_fence_1
const FakeFence1_ = true
