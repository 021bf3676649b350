package kernel

import (
	"unsafe"

	"golang.org/x/exp/slices"

	"github.com/rheehot/HYU-ELE3021/internal/hal"
	"github.com/rheehot/HYU-ELE3021/internal/spinlock"
)

// Process is one process-table slot (spec §3 "Process (P)").
//
// Adapted from kernel/proc.go's KProc struct and
// original_source/xv6-public/proc.h's struct proc, generalized from a
// single-threaded process to the NTHREAD-wide thread pool spec §3/§4.B
// describe.
type Process struct {
	Pid    Pid
	Name   string
	AS     hal.AddressSpace
	Size   uint64
	Parent *Process // back-reference only, resolved under the machine lock
	Killed bool

	Threads []Thread
	KStacks []uintptr
	UStacks []uint64
	TIdx    int

	Files *hal.FileTable

	State ProcState
	Sched SchedInfo
}

// RunnableThreadIndex returns the index of an arbitrary RUNNABLE thread,
// mirroring the static runnable() helper in
// original_source/xv6-public/mlfq.c.
func (p *Process) RunnableThreadIndex() (int, bool) {
	for i := range p.Threads {
		if p.Threads[i].State == ThreadRunnable {
			return i, true
		}
	}
	return -1, false
}

// Chan returns the stable address used as this process's own wait()
// rendezvous channel (spec §5: "parent process address for wait").
func (p *Process) Chan() Chan {
	return Chan(uintptr(unsafe.Pointer(p)))
}

// ProcessTable is the fixed-size array of process slots (spec §4.A).
type ProcessTable struct {
	Procs []Process
}

func NewProcessTable(n int) *ProcessTable {
	return &ProcessTable{Procs: make([]Process, n)}
}

// allocSlot finds an UNUSED slot, or nil if the table is full.
func (t *ProcessTable) allocSlot() *Process {
	idx := slices.IndexFunc(t.Procs, func(p Process) bool { return p.State == ProcUnused })
	if idx == -1 {
		return nil
	}
	return &t.Procs[idx]
}

// AllocProcess finds a free process slot, brings up its first thread in
// EMBRYO with a freshly allocated kernel stack, and registers it into
// MLFQ level 0 (spec §4.A "alloc()"; original allocproc()).
func (m *Machine) AllocProcess(caller spinlock.CLI, name string) (*Process, error) {
	m.lock.Acquire(caller)

	p := m.table.allocSlot()
	if p == nil {
		m.lock.Release(caller)
		return nil, newErr(KindOutOfSlots, "AllocProcess", ErrOutOfSlots)
	}

	*p = Process{
		Pid:     Pid(m.nextPid),
		Name:    name,
		State:   ProcEmbryo,
		Threads: make([]Thread, m.cfg.NTHREAD),
		KStacks: make([]uintptr, m.cfg.NTHREAD),
		UStacks: make([]uint64, m.cfg.NTHREAD),
		Files:   hal.NewFileTable(),
	}
	m.nextPid++

	t := &p.Threads[0]
	t.Tid = Tid(m.nextTid)
	m.nextTid++
	t.State = ThreadEmbryo
	t.proc = p
	t.TF = &hal.TrapFrame{}

	if err := m.mlfq.Append(p, 0); err != nil {
		p.State = ProcUnused
		m.lock.Release(caller)
		return nil, err
	}

	m.lock.Release(caller)

	kstack, ok := m.pages.Alloc()
	if !ok {
		m.lock.Acquire(caller)
		p.State = ProcUnused
		t.State = ThreadUnused
		m.mlfq.Delete(p)
		m.lock.Release(caller)
		return nil, newErr(KindOutOfMemory, "AllocProcess", ErrOutOfMemory)
	}
	p.KStacks[0] = kstack
	t.KStack = kstack
	t.Context.ResumeIP = bootstrapResumeAddr

	return p, nil
}

// bootstrapResumeAddr is a sentinel standing in for the address of the
// bootstrap routine (forkret/trapret in the original, TaskStub in the
// teacher's port) a fresh thread's saved context resumes into: release
// the scheduler lock, then fall into user mode.
const bootstrapResumeAddr uintptr = 1

// Fork creates a child copying curr as the parent (spec §4.A "fork()";
// original fork()). The child's thread 0 inherits the calling thread's
// trap frame, the user-stack slot at the parent's current thread index is
// swapped with slot 0 (spec §8 scenario 6), and the child's return value
// is cleared to 0.
//
// childBody is what the child's thread 0 runs, playing the role Spawn's
// body plays for exec(): the original's fork() takes no argument because
// the child resumes into the parent's already-mapped code, but a
// ThreadFunc is a Go closure with no such resume address.
func (m *Machine) Fork(caller spinlock.CLI, curr *Process, childBody ThreadFunc) (Pid, error) {
	child, err := m.AllocProcess(caller, curr.Name)
	if err != nil {
		return 0, err
	}

	as, err := curr.AS.Copy()
	if err != nil {
		m.lock.Acquire(caller)
		m.freeProcessLocked(child)
		m.lock.Release(caller)
		return 0, newErr(KindOutOfMemory, "Fork", err)
	}
	child.AS = as
	child.Size = curr.Size

	m.lock.Acquire(caller)
	child.Parent = curr

	copy(child.UStacks, curr.UStacks)
	child.UStacks[0], child.UStacks[curr.TIdx] = curr.UStacks[curr.TIdx], child.UStacks[0]

	childTF := curr.Threads[curr.TIdx].TF.Clone()
	childTF.ReturnV = 0
	child.Threads[0].TF = &childTF

	child.Files = curr.Files.Dup()

	child.Threads[0].co = NewCoroutine(&child.Threads[0], childBody)
	child.State = ProcRunnable
	child.Threads[0].State = ThreadRunnable
	pid := child.Pid
	m.lock.Release(caller)

	return pid, nil
}

// freeProcessLocked rolls an EMBRYO process back to UNUSED on a failed
// fork, matching the cleanup in original fork()'s allocuvm-failure path.
// Caller must hold the machine lock.
func (m *Machine) freeProcessLocked(p *Process) {
	if p.KStacks[0] != 0 {
		m.pages.Free(p.KStacks[0])
	}
	p.Threads[0].State = ThreadUnused
	p.KStacks[0] = 0
	p.State = ProcUnused
	m.mlfq.Delete(p)
}

// ExitProcess closes files, releases cwd, wakes the parent, reparents
// children to init, and marks the process and its threads ZOMBIE (spec
// §4.A "exit()"; original exit()). It returns to its caller; it does not
// enter the scheduler itself. The thread stops running only once its
// ThreadFunc returns, which the dispatcher handles as SuspendExit (see
// Syscalls.Exit). Exiting init is an InvariantViolation.
func (m *Machine) ExitProcess(caller spinlock.CLI, curr *Process) {
	if curr == m.initProc {
		kernelPanic("init exiting")
	}

	curr.Files.CloseAll()

	m.lock.Acquire(caller)

	m.wakeupLocked(curr.Parent.Chan())

	for i := range m.table.Procs {
		p := &m.table.Procs[i]
		if p.Parent == curr {
			p.Parent = m.initProc
			if p.State == ProcZombie {
				m.wakeupLocked(m.initProc.Chan())
			}
		}
	}

	curr.State = ProcZombie
	for i := range curr.Threads {
		if curr.Threads[i].State != ThreadUnused {
			curr.Threads[i].State = ThreadZombie
		}
	}

	m.lock.Release(caller)
}

// WaitProcess blocks until a child exits, reaps it, and returns its pid
// (spec §4.A "wait()"; original wait()). It returns ErrNotFound if curr
// has no children, or if curr is killed while it has no zombie child to
// reap.
func (m *Machine) WaitProcess(caller spinlock.CLI, y *Yielder, curr *Process) (Pid, error) {
	m.lock.Acquire(caller)
	for {
		haveKids := false
		for i := range m.table.Procs {
			p := &m.table.Procs[i]
			if p.Parent != curr {
				continue
			}
			haveKids = true
			if p.State == ProcZombie {
				pid := p.Pid
				for off := range p.Threads {
					if p.KStacks[off] != 0 {
						m.pages.Free(p.KStacks[off])
						p.KStacks[off] = 0
						p.UStacks[off] = 0
					}
					p.Threads[off] = Thread{}
				}
				if p.AS != nil {
					p.AS.Free()
				}
				m.mlfq.Delete(p)
				*p = Process{}
				m.lock.Release(caller)
				return pid, nil
			}
		}

		if !haveKids || curr.Killed {
			m.lock.Release(caller)
			return 0, newErr(KindNotFound, "WaitProcess", ErrNotFound)
		}

		m.sleepOnLocked(caller, y, &curr.Threads[curr.TIdx], curr.Chan())
	}
}

// KillProcess sets pid's killed flag and promotes every SLEEPING thread
// of that process to RUNNABLE, so it returns to "user space" and exits on
// its own (spec §4.A "kill(pid)"; original kill()).
func (m *Machine) KillProcess(caller spinlock.CLI, pid Pid) error {
	m.lock.Acquire(caller)
	defer m.lock.Release(caller)

	for i := range m.table.Procs {
		p := &m.table.Procs[i]
		if p.Pid != pid || p.State == ProcUnused {
			continue
		}
		p.Killed = true
		for j := range p.Threads {
			if p.Threads[j].State == ThreadSleeping {
				p.Threads[j].State = ThreadRunnable
			}
		}
		return nil
	}
	return newErr(KindNotFound, "KillProcess", ErrNotFound)
}

// Spawn allocates a process and installs body as its first thread's
// workload, marking both runnable immediately. Stands in for the
// out-of-scope exec()/ELF-loading path (spec §1); original userinit()
// copies a fixed initcode blob instead of taking a function value, but
// the result is the same: a brand new process, ready to run, whose
// parent is init. The first process Spawn creates becomes init and is
// recorded as its own parent.
func (m *Machine) Spawn(caller spinlock.CLI, name string, body ThreadFunc) (*Process, error) {
	p, err := m.AllocProcess(caller, name)
	if err != nil {
		return nil, err
	}

	as, err := hal.SetupAddressSpace()
	if err != nil {
		m.lock.Acquire(caller)
		m.freeProcessLocked(p)
		m.lock.Release(caller)
		return nil, newErr(KindOutOfMemory, "Spawn", err)
	}

	m.lock.Acquire(caller)
	p.AS = as
	p.Size = as.Size()

	t := &p.Threads[0]
	t.co = NewCoroutine(t, body)
	t.State = ThreadRunnable
	p.State = ProcRunnable

	if m.initProc == nil {
		m.initProc = p
		p.Parent = p
	} else {
		p.Parent = m.initProc
	}
	m.lock.Release(caller)

	return p, nil
}

// GetLev returns curr's current MLFQ level, or -1 if it is stride
// scheduled (spec §6 "getlev").
func (m *Machine) GetLev(curr *Process) int {
	if curr == nil {
		return -1
	}
	return curr.Sched.Level
}

// SetCPUShare moves curr onto the stride scheduler with the given percent
// of CPU, per spec §6 "set_cpu_share".
func (m *Machine) SetCPUShare(caller spinlock.CLI, curr *Process, percent int) error {
	if percent <= 0 {
		return newErr(KindShareRefused, "SetCPUShare", ErrShareRefused)
	}
	m.lock.Acquire(caller)
	defer m.lock.Release(caller)
	return m.mlfq.CPUShare(curr, int64(percent))
}
