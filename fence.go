package bakery

import (
	"sync/atomic"

	"github.com/llxisdsh/bakery/internal/opt"
)

// Go's sync/atomic has no free-standing fence: every atomic load and store
// is sequentially consistent. The two SC fences of the protocol are
// therefore attached to the stores that precede them, and the SC loads on
// the other side complete the pairing. Without them the doorway admits this
// store buffering cycle (c = choosing, t = ticket):
//
//	W(c[0], 1) -po-> R(t[1], 0) -rb-> W(t[1], 1) -po-> R(c[0], 0) -rb-> W(c[0], 1)
//
//	Thread 0:                                   Thread 1:
//
//	c[0] = 1                                 |  c[1] = 1
//	                                         |  t[1] = max(t[0], t[1]) + 1 // 1
//	// c[1], t[1] not yet visible            |
//	t[0] = max(t[0], t[1]) + 1 // 1          |
//	c[0] = 0                                 |
//	                                         |  c[1] = 0
//	                                         |  // c[0], t[0] not yet visible
//	                                         |  c[0] == 0, t[0] == 0
//	c[1] == 0, t[1] == 1, (1, 0) < (1, 1)    |  // critical section
//	// critical section                      |  // critical section
//
// Thread 1 misses thread 0's doorway entirely and believes it holds the
// lowest ticket while thread 0, which has priority, also enters. F1 cuts
// the W(c) -> R(t) edge, F2 cuts the W(t) -> R(c) edge.
//
// The bakery_fake_fence_1 and bakery_fake_fence_2 build tags replace the
// attached store with a plain one, reopening the cycle so it can be caught
// by the race detector. They are never meant for production builds.

// beginChoosing raises the choosing flag and issues F1: the flag is
// ordered before every ticket read of the scan that follows.
//
//go:nosplit
func beginChoosing(choosing *uint32) {
	if opt.FakeFence1_ {
		*choosing = 1
		return
	}
	atomic.StoreUint32(choosing, 1)
}

// abandonChoosing lowers the choosing flag after a scan that found no room
// below the ticket ceiling.
//
//go:nosplit
func abandonChoosing(choosing *uint32) {
	atomic.StoreUint32(choosing, 0)
}

// publishTicket stores the drawn ticket, issues F2 and leaves the doorway.
//
// F2 orders the ticket before every choosing read of the peer scan, and
// makes it visible to any peer whose load observes the flag drop: that load
// acquires this store sequence, so the peer's next ticket read is current.
//
//go:nosplit
func publishTicket(ticket, choosing *uint32, v uint32) {
	if opt.FakeFence2_ {
		*ticket = v
		*choosing = 0
		return
	}
	atomic.StoreUint32(ticket, v)
	atomic.StoreUint32(choosing, 0)
}

// releaseTicket hands the lock on. The store releases every write of the
// critical section to the next owner, whose final ticket read acquires it.
//
//go:nosplit
func releaseTicket(ticket *uint32) {
	atomic.StoreUint32(ticket, 0)
}
