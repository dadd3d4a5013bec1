package bakery

import (
	"runtime"
	"sync/atomic"
	_ "unsafe" // for linkname

	"github.com/llxisdsh/bakery/internal/opt"
)

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

// spin is the only way a waiter in this package passes time.
// It never sleeps or parks: after a short burst of processor pause
// hints it yields, and the goroutine stays runnable.
func spin(spins *int) {
	if trySpin(spins) {
		return
	}
	*spins = 0
	runtime.Gosched()
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()

// loadOwn reads a slot written only by the calling thread.
// Plain on regular builds; atomic under the race detector.
//
//go:nosplit
func loadOwn(addr *uint32) uint32 {
	if opt.Race_ {
		return atomic.LoadUint32(addr)
	}
	return *addr
}

// precedes reports whether (t1, id1) sorts strictly before (t2, id2).
// Equal tickets are broken by thread identity.
//
//go:nosplit
func precedes(t1 uint32, id1 int, t2 uint32, id2 int) bool {
	return t1 < t2 || (t1 == t2 && id1 < id2)
}
