package hal

import "sync/atomic"

// Clock is the collaborator behind spec §6's tick_counter: a
// monotonically increasing tick count the dispatcher loop reads at the
// start and end of every time slice (spec §4.E step 4) to compute elapsed
// ticks. Modeled as an explicit interface (rather than a bare-metal
// CLINT-backed sys_uptime() call, as in
// original_source/xv6-public/mlfq.c's mlfq_scheduler) so tests can drive
// deterministic tick sequences.
type Clock interface {
	// Now returns the current tick count.
	Now() uint64
	// Advance moves the clock forward by n ticks and returns the new
	// value. A real timer interrupt handler would call this once per
	// hardware tick; tests call it directly to simulate time passing.
	Advance(n uint64) uint64
}

// SimClock is an in-memory Clock suitable for both production use (driven
// by a timer goroutine) and tests (driven directly).
type SimClock struct {
	ticks uint64
}

func NewSimClock() *SimClock { return &SimClock{} }

func (c *SimClock) Now() uint64 { return atomic.LoadUint64(&c.ticks) }

func (c *SimClock) Advance(n uint64) uint64 {
	return atomic.AddUint64(&c.ticks, n)
}
