//go:build bakery_fake_fence_2

package opt

// FakeFence2_ downgrades the ordering of the ticket store that precedes
// the peer scan to a plain store.
// Use: go test -race -tags=bakery_fake_fence_2
const FakeFence2_ = true
