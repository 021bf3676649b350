// Package kernel implements the process/thread scheduling subsystem: the
// MLFQ scheduler, the stride meta-scheduler that partitions CPU between
// the MLFQ aggregate and reserved-share processes, the per-process thread
// pool, and the dispatcher loop that ties them together (spec.md §2-§5).
//
// Adapted from kernel/proc.go (Nonepf-xv6-in-go) and, for the MLFQ/stride
// semantics the teacher's Go port never ported,
// original_source/xv6-public/proc.c and original_source/xv6-public/mlfq.c.
package kernel

import "fmt"

// Pid is a process identifier (spec §3: "a stable identifier (monotonic
// pid)").
type Pid int

// Tid is a thread identifier.
type Tid int

// Chan is the opaque rendezvous key sleep/wakeup synchronize on (spec §3,
// GLOSSARY "Channel"). Following xv6 itself, a Chan is simply an address:
// a parent process's own pointer for wait(), or a tid cast to a pointer
// for thread_join().
type Chan uintptr

// ProcState is a process's lifecycle state (spec §3).
type ProcState int

const (
	ProcUnused ProcState = iota
	ProcEmbryo
	ProcRunnable
	ProcZombie
)

func (s ProcState) String() string {
	switch s {
	case ProcUnused:
		return "UNUSED"
	case ProcEmbryo:
		return "EMBRYO"
	case ProcRunnable:
		return "RUNNABLE"
	case ProcZombie:
		return "ZOMBIE"
	default:
		return fmt.Sprintf("ProcState(%d)", int(s))
	}
}

// ThreadState is a thread's lifecycle state (spec §3).
type ThreadState int

const (
	ThreadUnused ThreadState = iota
	ThreadEmbryo
	ThreadRunnable
	ThreadRunning
	ThreadSleeping
	ThreadZombie
)

func (s ThreadState) String() string {
	switch s {
	case ThreadUnused:
		return "UNUSED"
	case ThreadEmbryo:
		return "EMBRYO"
	case ThreadRunnable:
		return "RUNNABLE"
	case ThreadRunning:
		return "RUNNING"
	case ThreadSleeping:
		return "SLEEPING"
	case ThreadZombie:
		return "ZOMBIE"
	default:
		return fmt.Sprintf("ThreadState(%d)", int(s))
	}
}

// SchedInfo is the scheduler-info record embedded in every process (spec
// §3: "{level, index, elapsed, start}"). Level -1 means the process is
// stride-scheduled rather than sitting in an MLFQ queue (spec §4.D
// invariant).
type SchedInfo struct {
	Level   int
	Index   int
	Elapsed uint64
	Start   uint64
}

// Decision is what mlfq_update/stride_update report back to the dispatcher
// loop (spec §4.D "Post-slice update"): MLFQ_KEEP / MLFQ_NEXT in the
// original source.
type Decision int

const (
	DecisionKeep Decision = iota
	DecisionNext
)

func (d Decision) String() string {
	if d == DecisionKeep {
		return "KEEP"
	}
	return "NEXT"
}
