//go:build race

package opt

// Race_ is set under the race detector; callers fall back to atomic
// accesses where they would otherwise read their own slot plainly.
const Race_ = true
