package kernel

// A Coroutine drives a thread's workload on a dedicated goroutine and
// hands control back to the dispatcher at every suspension point,
// standing in for the raw context_switch primitive the teacher implements
// with a go:linkname'd assembly swtch (kernel/proc.go's TaskStub) and the
// original's swtch(&t->context, ...) calls. Since this module runs the
// scheduler core as ordinary Go code rather than on bare hardware, the
// "context switch between thread contexts without reloading the page
// directory" (spec §4.B, next_thread) is modeled as a channel handoff
// between the dispatcher and the thread's goroutine, rather than a
// register-level stack swap.
type Coroutine struct {
	resume chan struct{}
	pause  chan Suspension
}

// SuspensionKind is why a thread's goroutine handed control back.
type SuspensionKind int

const (
	// SuspendSlice: one unit of CPU-bound work was consumed; the thread
	// is still runnable and wants the dispatcher to re-evaluate policy.
	SuspendSlice SuspensionKind = iota
	// SuspendSleep: the thread is blocking on a channel.
	SuspendSleep
	// SuspendExit: the workload function returned; ThreadFunc's return
	// value is the thread_exit(retval) argument.
	SuspendExit
)

// Suspension describes one handoff from a thread's goroutine back to the
// dispatcher.
type Suspension struct {
	Kind   SuspensionKind
	Chan   Chan
	RetVal uintptr
	Ticks  uint64 // SuspendSlice only: simulated ticks consumed this hop
}

// ThreadFunc is a thread's user-mode body. It receives a Yielder used to
// cooperatively suspend, and returns the value thread_exit would have
// been called with.
type ThreadFunc func(y *Yielder) uintptr

// NewCoroutine starts body on a new goroutine, parked until the first
// Dispatch call. This is the coroutine-via-goroutine pattern the
// channel-driven schedulers elsewhere in the retrieval pack use (e.g. the
// CPU.Done handoff in cdfmlr-sham's scheduler), adapted here to a
// request/response pair so the dispatcher can regain control after every
// slice rather than only at thread completion.
func NewCoroutine(owner *Thread, body ThreadFunc) *Coroutine {
	c := &Coroutine{
		resume: make(chan struct{}),
		pause:  make(chan Suspension),
	}
	y := &Yielder{c: c, owner: owner}
	go func() {
		<-c.resume
		retval := body(y)
		c.pause <- Suspension{Kind: SuspendExit, RetVal: retval}
	}()
	return c
}

// Dispatch resumes the coroutine for one slice and blocks until it
// suspends again.
func (c *Coroutine) Dispatch() Suspension {
	c.resume <- struct{}{}
	return <-c.pause
}

// Yielder is the only way a ThreadFunc can cooperatively give up the CPU;
// it is the user-mode side of sleep/yield (spec §4.F).
type Yielder struct {
	c     *Coroutine
	owner *Thread
}

// Tick reports n simulated ticks of CPU-bound work and returns control to
// the dispatcher, resuming only once the dispatcher schedules this thread
// again. The dispatcher advances its clock by n and re-evaluates MLFQ/
// stride policy against the cumulative time since this thread's current
// continuous run began; n == 0 is a bare policy re-check (yield()'s
// "give up the CPU and let the post-slice decision stand" with no time
// passing).
func (y *Yielder) Tick(n uint64) {
	y.c.pause <- Suspension{Kind: SuspendSlice, Ticks: n}
	<-y.c.resume
}

// SleepOn suspends until wakeup(ch) promotes the thread back to RUNNABLE
// and the dispatcher resumes it.
func (y *Yielder) SleepOn(ch Chan) {
	y.c.pause <- Suspension{Kind: SuspendSleep, Chan: ch}
	<-y.c.resume
}

// Killed reports the owning process's advisory kill flag (spec §7:
// "killed is advisory until the thread next reaches user mode"), letting
// a cooperative workload observe it the way a real trap-return check
// would.
func (y *Yielder) Killed() bool {
	return y.owner.proc.Killed
}

// Tid returns the calling thread's id.
func (y *Yielder) Tid() Tid { return y.owner.Tid }
