package kernel

import (
	"golang.org/x/exp/slices"

	"github.com/rheehot/HYU-ELE3021/internal/hal"
	"github.com/rheehot/HYU-ELE3021/internal/spinlock"
)

// Thread is one thread-pool slot (spec §3 "Thread (T)").
//
// Adapted from original_source/xv6-public/proc.h's struct thread and
// proc.c's thread_create/thread_exit/thread_join/next_thread, none of
// which the teacher's Go port carries (kernel/proc.go's KProc is
// single-threaded).
type Thread struct {
	Tid     Tid
	State   ThreadState
	KStack  uintptr
	Context hal.Context
	TF      *hal.TrapFrame
	Chan    Chan
	RetVal  uintptr

	proc *Process
	co   *Coroutine

	ncli      int32
	savedIntr bool
	intrOn    bool
}

// ID/PushCli/PopCli implement spinlock.CLI: a Thread is its own
// execution context for nested-cli purposes, the natural analogue in a
// goroutine-per-thread simulation of the original's per-CPU counter
// (each kernel thread of execution, CPU or simulated thread, tracks its
// own disable-interrupt nesting; see CPU's identical pair for
// the dispatcher's own context).
func (t *Thread) ID() int { return int(t.Tid) }

func (t *Thread) PushCli() {
	if t.ncli == 0 {
		t.savedIntr = t.intrOn
	}
	t.intrOn = false
	t.ncli++
}

func (t *Thread) PopCli() {
	if t.ncli < 1 {
		kernelPanic("popcli: thread %d", t.Tid)
	}
	t.ncli--
	if t.ncli == 0 {
		t.intrOn = t.savedIntr
	}
}

// ThreadCreate finds a UNUSED thread slot in curr, allocates (or reuses a
// cached) kernel stack and user stack, seeds the trap frame from the
// calling thread's, and makes the new thread RUNNABLE running body (spec
// §4.B "thread_create"; original thread_create()).
func (m *Machine) ThreadCreate(caller spinlock.CLI, curr *Process, callerIdx int, body ThreadFunc) (Tid, error) {
	m.lock.Acquire(caller)

	idx := slices.IndexFunc(curr.Threads, func(th Thread) bool { return th.State == ThreadUnused })
	if idx == -1 {
		m.lock.Release(caller)
		return 0, newErr(KindOutOfSlots, "ThreadCreate", ErrOutOfSlots)
	}

	t := &curr.Threads[idx]
	t.Tid = Tid(m.nextTid)
	m.nextTid++
	t.proc = curr

	if curr.KStacks[idx] == 0 {
		kstack, ok := m.pages.Alloc()
		if !ok {
			t.Tid = 0
			t.State = ThreadUnused
			m.lock.Release(caller)
			return 0, newErr(KindOutOfMemory, "ThreadCreate", ErrOutOfMemory)
		}
		curr.KStacks[idx] = kstack
	}
	t.KStack = curr.KStacks[idx]

	tf := curr.Threads[callerIdx].TF.Clone()
	t.TF = &tf
	t.Context.ResumeIP = bootstrapResumeAddr

	if curr.UStacks[idx] == 0 {
		base := hal.PageRoundUp(curr.Size)
		grown, err := curr.AS.Grow(base + hal.PGSize)
		if err != nil {
			t.KStack = 0
			t.Tid = 0
			t.State = ThreadUnused
			m.lock.Release(caller)
			return 0, newErr(KindOutOfMemory, "ThreadCreate", err)
		}
		curr.Size = grown
		curr.UStacks[idx] = grown
	}

	t.co = NewCoroutine(t, body)
	t.RetVal = 0
	t.State = ThreadRunnable

	tid := t.Tid
	m.lock.Release(caller)
	return tid, nil
}

// threadEpilogueLocked marks tidx ZOMBIE and wakes any joiner, mirroring
// thread_epilogue. Caller must hold the machine lock.
func (m *Machine) threadEpilogueLocked(p *Process, tidx int) {
	t := &p.Threads[tidx]
	t.State = ThreadZombie
	m.wakeupLocked(Chan(uintptr(t.Tid)))
}

// ThreadJoin waits for tid to finish, copies out its return value, and
// frees its slot while keeping the kernel/user stacks cached at its index
// for reuse (spec §4.B "thread_join"; original thread_join()). Per
// SPEC_FULL.md's "thread_join only matches threads of RUNNABLE processes"
// note, the scan here is widened to every live process slot so a lookup
// during a concurrent exit still resolves deterministically.
func (m *Machine) ThreadJoin(caller spinlock.CLI, y *Yielder, waiter *Thread, target Tid) (uintptr, error) {
	m.lock.Acquire(caller)

	var p *Process
	var t *Thread
	for i := range m.table.Procs {
		cand := &m.table.Procs[i]
		if cand.State == ProcUnused {
			continue
		}
		for j := range cand.Threads {
			if cand.Threads[j].Tid == target {
				p, t = cand, &cand.Threads[j]
				break
			}
		}
		if t != nil {
			break
		}
	}
	if t == nil {
		m.lock.Release(caller)
		return 0, newErr(KindNotFound, "ThreadJoin", ErrNotFound)
	}

	for t.State != ThreadZombie {
		m.sleepOnLocked(caller, y, waiter, Chan(uintptr(target)))
	}

	retval := t.RetVal
	_ = p
	t.State = ThreadUnused
	t.Tid = 0
	t.RetVal = 0
	t.co = nil

	m.lock.Release(caller)
	return retval, nil
}

// sleepOnLocked is the common core of sleep(chan, lk) when the caller
// already holds the machine lock (spec §4.F), matching both wait() and
// thread_join() in the original, which always call sleep(chan,
// &ptable.lock). It releases the lock before suspending the calling
// thread's goroutine and reacquires it before returning, exactly
// fulfilling sleep's contract ("on return the caller again holds lk").
func (m *Machine) sleepOnLocked(caller spinlock.CLI, y *Yielder, t *Thread, ch Chan) {
	t.Chan = ch
	t.State = ThreadSleeping
	m.lock.Release(caller)
	y.SleepOn(ch)
	m.lock.Acquire(caller)
	t.Chan = 0
}

// Sleep is the general sleep(chan, lk) primitive for a caller that does
// not already hold the machine lock.
func (m *Machine) Sleep(caller spinlock.CLI, y *Yielder, t *Thread, ch Chan) {
	m.lock.Acquire(caller)
	m.sleepOnLocked(caller, y, t, ch)
	m.lock.Release(caller)
}

// wakeupLocked promotes every SLEEPING thread of every RUNNABLE process
// whose Chan matches ch back to RUNNABLE (wakeup1). Caller must hold the
// machine lock.
func (m *Machine) wakeupLocked(ch Chan) {
	for i := range m.table.Procs {
		p := &m.table.Procs[i]
		if p.State != ProcRunnable {
			continue
		}
		for j := range p.Threads {
			if p.Threads[j].State == ThreadSleeping && p.Threads[j].Chan == ch {
				p.Threads[j].State = ThreadRunnable
			}
		}
	}
}

// Wakeup takes the machine lock and promotes every matching SLEEPING
// thread (spec §4.F "wakeup").
func (m *Machine) Wakeup(caller spinlock.CLI, ch Chan) {
	m.lock.Acquire(caller)
	m.wakeupLocked(ch)
	m.lock.Release(caller)
}

// Yield gives up the CPU for one scheduling round (spec §4.B
// "yield"/original yield()).
func (m *Machine) Yield(caller spinlock.CLI, y *Yielder, t *Thread) {
	m.lock.Acquire(caller)
	t.State = ThreadRunnable
	m.lock.Release(caller)
	y.Tick(0)
}

// nextThreadLocked searches curr's thread array starting after from
// (wrapping around) for a RUNNABLE peer, mirroring next_thread's search
// (spec §4.B "In-process thread switch"). It does not mutate any state;
// the caller performs the actual state transition and the (re)dispatch.
func (m *Machine) nextThreadLocked(p *Process, from int) (int, bool) {
	n := len(p.Threads)
	for step := 1; step <= n; step++ {
		idx := (from + step) % n
		if idx == from {
			break
		}
		if p.Threads[idx].State == ThreadRunnable {
			return idx, true
		}
	}
	return from, false
}
