//go:build !bakery_fake_fence_1

package opt

const FakeFence1_ = false
