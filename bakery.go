// Package bakery implements Lamport's bakery lock for a fixed number of
// participants, using only loads and stores of per-thread slots.
package bakery

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/llxisdsh/bakery/internal/opt"
)

// Lock is a fair, FIFO mutual-exclusion lock for exactly N participants.
//
// Unlike sync.Mutex or TicketLock-style locks, it needs no read-modify-write
// instruction: every participant owns one choosing flag and one ticket slot,
// writes only its own slots, and reads everyone else's.
//
// Implementation:
// It uses Lamport's bakery algorithm.
//   - Lock(id): Enters the doorway (choosing), draws a ticket one past the
//     largest ticket it can see, then waits for every peer that is choosing
//     or holds a smaller (ticket, id) pair.
//   - Unlock(id): Clears its ticket.
//
// Participants are identified by integers in [0, N), fixed at New. An
// identity must be used by at most one goroutine at a time. Entry among
// waiting participants is ordered by (ticket, id) ascending.
//
// All waiting is busy-polling; nothing sleeps or parks. A Lock call cannot
// be cancelled, and recursive locking by the same identity panics.
//
// Usage:
//
//	l := bakery.New(4)
//	l.Lock(id)
//	// Critical section for participant id
//	l.Unlock(id)
type Lock struct {
	_         noCopy
	choosing  []opt.Cell_
	tickets   []opt.Cell_
	drains    []atomic.Uint64
	maxTicket uint32
}

// Config defines configurable options for Lock initialization.
type Config struct {
	// maxTicket is the largest ticket a participant may draw.
	// A participant that would exceed it steps out of the doorway and
	// retries until the current holders have drained out.
	// Defaults to math.MaxUint32.
	maxTicket uint32
}

// WithMaxTicket lowers the ticket ceiling. It is mainly useful to drive the
// overflow path in tests and load generators. A zero ceiling is ignored.
func WithMaxTicket(ceiling uint32) func(*Config) {
	return func(c *Config) {
		if ceiling != 0 {
			c.maxTicket = ceiling
		}
	}
}

// New creates a Lock for n participants with identities 0..n-1.
// It panics if n < 1.
func New(n int, options ...func(*Config)) *Lock {
	if n < 1 {
		panic(fmt.Sprintf("bakery: participant count %d, want at least 1", n))
	}
	cfg := Config{maxTicket: math.MaxUint32}
	for _, o := range options {
		o(&cfg)
	}
	return &Lock{
		choosing:  make([]opt.Cell_, n),
		tickets:   make([]opt.Cell_, n),
		drains:    make([]atomic.Uint64, n),
		maxTicket: cfg.maxTicket,
	}
}

// N returns the number of participants.
func (l *Lock) N() int {
	return len(l.tickets)
}

// Lock acquires the lock for participant id, spinning until every peer
// with priority has left.
//
// It panics if id is out of range or if id already holds or waits for the
// lock.
func (l *Lock) Lock(id int) {
	l.checkID(id)
	if loadOwn(&l.tickets[id].V) != 0 {
		panic(fmt.Sprintf("bakery: recursive Lock by thread %d", id))
	}

	ticket := l.draw(id)
	publishTicket(&l.tickets[id].V, &l.choosing[id].V, ticket)

	for other := range l.tickets {
		if other == id {
			continue
		}
		l.waitFor(id, ticket, other)
	}
	// Each peer was last seen through an atomic load, either without a
	// ticket or behind us. A zero observed there was written by that peer's
	// Unlock, so its critical section happens before ours.
}

// draw runs the doorway and returns a ticket one past the largest one
// visible. The choosing flag is left raised.
func (l *Lock) draw(id int) uint32 {
	choosing := &l.choosing[id].V
	var spins int
	for {
		beginChoosing(choosing)

		var top uint32
		for i := range l.tickets {
			top = max(top, atomic.LoadUint32(&l.tickets[i].V))
		}
		if top < l.maxTicket {
			return top + 1
		}

		// No room below the ceiling. Leave the doorway so the holders can
		// drain and tickets fall back to low values.
		abandonChoosing(choosing)
		d := &l.drains[id]
		d.Store(d.Load() + 1)
		spin(&spins)
	}
}

// waitFor spins until other is neither choosing nor ahead of (ticket, id).
func (l *Lock) waitFor(id int, ticket uint32, other int) {
	var spins int
	for atomic.LoadUint32(&l.choosing[other].V) != 0 {
		spin(&spins)
	}
	// The load that saw choosing drop pairs with other's F2, so the
	// ticket read below is at least as new as the one it published.
	for {
		t := atomic.LoadUint32(&l.tickets[other].V)
		if t == 0 || precedes(ticket, id, t, other) {
			return
		}
		spin(&spins)
	}
}

// Unlock releases the lock held by participant id.
//
// It panics if id is out of range or does not hold a ticket. Unlocking
// on behalf of another participant is not detected and breaks the lock.
func (l *Lock) Unlock(id int) {
	l.checkID(id)
	if loadOwn(&l.tickets[id].V) == 0 {
		panic(fmt.Sprintf("bakery: unlock of unlocked thread %d", id))
	}
	releaseTicket(&l.tickets[id].V)
}

// Ticket returns a snapshot of participant id's ticket; zero means the
// participant is not contending.
func (l *Lock) Ticket(id int) uint32 {
	l.checkID(id)
	return atomic.LoadUint32(&l.tickets[id].V)
}

// Drains returns how many times participant id stepped out of the doorway
// because the ticket ceiling was reached.
func (l *Lock) Drains(id int) uint64 {
	l.checkID(id)
	return l.drains[id].Load()
}

// TotalDrains returns the sum of Drains over all participants.
func (l *Lock) TotalDrains() uint64 {
	var n uint64
	for i := range l.drains {
		n += l.drains[i].Load()
	}
	return n
}

// Locker returns a sync.Locker that locks and unlocks as participant id.
func (l *Lock) Locker(id int) sync.Locker {
	l.checkID(id)
	return threadLocker{l: l, id: id}
}

type threadLocker struct {
	l  *Lock
	id int
}

func (t threadLocker) Lock()   { t.l.Lock(t.id) }
func (t threadLocker) Unlock() { t.l.Unlock(t.id) }

func (l *Lock) checkID(id int) {
	if uint(id) >= uint(len(l.tickets)) {
		panic(fmt.Sprintf("bakery: thread id %d out of range [0, %d)", id, len(l.tickets)))
	}
}
