// Package spinlock implements the single mutual-exclusion primitive the
// scheduler core is built on (spec §5: "The scheduler lock is the only
// mutual-exclusion primitive in the core").
//
// Adapted from kernel/spinlock.go (Nonepf-xv6-in-go), which implemented
// acquire/release with a go:linkname'd test-and-set loop plus a bare
// intr_off/intr_on pair. That hardware interrupt-disable primitive has no
// counterpart once the scheduler runs as ordinary goroutines rather than on
// bare RISC-V hardware, so it is replaced with a real sync.Mutex guarded by
// the same push/pop "nested-cli" discipline xv6 tracks per CPU (§5,
// "per-CPU nested-cli counter").
package spinlock

import (
	"sync"
	"sync/atomic"
)

// CLI is implemented by whatever represents "the current CPU" to the
// caller. Acquire/Release push and pop its interrupt-disable nesting level,
// mirroring xv6's pushcli/popcli pairing around every spinlock acquire.
type CLI interface {
	ID() int
	PushCli()
	PopCli()
}

// Lock is a named mutual-exclusion lock with a recorded holder, so that
// Holding can answer the invariant checks the original kernel sprinkles
// through proc.c ("if(!holding(&ptable.lock)) panic(...)").
type Lock struct {
	mu     sync.Mutex
	name   string
	holder int64 // 1+CPU id of the holder, 0 when free
}

// New returns a lock with the given diagnostic name (mirrors initlock's
// name parameter, which xv6 uses purely for debugging).
func New(name string) *Lock {
	return &Lock{name: name}
}

func (l *Lock) Name() string { return l.name }

// Acquire disables the caller's interrupts (nested-cli push), then blocks
// until the lock is free.
func (l *Lock) Acquire(c CLI) {
	c.PushCli()
	l.mu.Lock()
	atomic.StoreInt64(&l.holder, int64(c.ID())+1)
}

// Release hands the lock back and restores the caller's interrupt state
// (nested-cli pop). Order matters: the holder is cleared before the mutex
// is unlocked so that a concurrent Holding check never observes a state
// where the mutex is free but the holder field still claims it.
func (l *Lock) Release(c CLI) {
	atomic.StoreInt64(&l.holder, 0)
	l.mu.Unlock()
	c.PopCli()
}

// Holding reports whether c currently holds this lock.
func (l *Lock) Holding(c CLI) bool {
	return atomic.LoadInt64(&l.holder) == int64(c.ID())+1
}
