//go:build !bakery_fake_fence_2

package opt

const FakeFence2_ = false
