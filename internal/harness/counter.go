package harness

// SharedCounter is a plain integer mutated by every worker with no
// synchronization of its own.
//
// It is correct only because each access happens inside a critical section
// of the bakery lock, whose Unlock/Lock pair orders successive holders.
// Touching it without holding the lock is a data race. It exists solely as
// the resource the harness protects and is never used by the lock itself.
type SharedCounter struct {
	v int
}

// Add must be called with the lock held.
func (c *SharedCounter) Add(n int) {
	c.v += n
}

// Load must be called with the lock held, or after all workers returned.
func (c *SharedCounter) Load() int {
	return c.v
}
