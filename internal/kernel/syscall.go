package kernel

// Syscalls is the syscall-table boundary of spec §6: every entry there is
// a method here, bound to one running thread's call context (its
// Yielder, whose owning Thread doubles as the spinlock.CLI identity for
// every Machine call it makes), translating internal *Error values to
// the spec's -1 convention (spec §7 "Policy").
//
// The original exposes these as bare C functions operating on an
// implicit "current process" global (myproc() in proc.c); Go has no such
// ambient context, so Syscalls carries it explicitly instead of relying
// on a package-level current-thread variable the way kernel/proc.go's
// current_proc does.
type Syscalls struct {
	m *Machine
	y *Yielder
}

// NewSyscalls binds a syscall table to one thread's run. Call it from
// inside the thread's own ThreadFunc, where a Yielder is available.
func NewSyscalls(m *Machine, y *Yielder) *Syscalls {
	return &Syscalls{m: m, y: y}
}

func (s *Syscalls) proc() *Process  { return s.y.owner.proc }
func (s *Syscalls) thread() *Thread { return s.y.owner }

// Fork creates a child of the calling process (original fork()). childBody
// is what the child runs once scheduled — see Machine.Fork's doc comment
// for why a plain, argument-less fork() has no equivalent here.
func (s *Syscalls) Fork(childBody ThreadFunc) int {
	pid, err := s.m.Fork(s.thread(), s.proc(), childBody)
	if err != nil {
		return ToSyscall(err)
	}
	return int(pid)
}

// Exit marks the calling process ZOMBIE and wakes its parent (original
// exit()). The calling ThreadFunc should call Exit and then return: the
// return drives the dispatcher's SuspendExit path, Go's equivalent of
// exit()'s non-local control transfer.
func (s *Syscalls) Exit() {
	s.m.ExitProcess(s.thread(), s.proc())
}

// Wait blocks for a child to exit and returns its pid, or -1 (original
// wait()).
func (s *Syscalls) Wait() int {
	pid, err := s.m.WaitProcess(s.thread(), s.y, s.proc())
	if err != nil {
		return ToSyscall(err)
	}
	return int(pid)
}

// Kill sets pid's killed flag (original kill()).
func (s *Syscalls) Kill(pid int) int {
	return ToSyscall(s.m.KillProcess(s.thread(), Pid(pid)))
}

// Yield gives up the calling thread's CPU for one scheduling round
// (original yield()).
func (s *Syscalls) Yield() {
	s.m.Yield(s.thread(), s.y, s.thread())
}

// GetLev returns the calling process's MLFQ level, or -1 if it is stride
// scheduled (original getlev()).
func (s *Syscalls) GetLev() int {
	return s.m.GetLev(s.proc())
}

// SetCPUShare moves the calling process onto the stride scheduler with
// the given percent of CPU (original set_cpu_share()).
func (s *Syscalls) SetCPUShare(percent int) int {
	return ToSyscall(s.m.SetCPUShare(s.thread(), s.proc(), percent))
}

// ThreadCreate spawns a new thread running body in the calling process
// (original thread_create()).
//
// thread_exit(retval) has no wrapper here: a ThreadFunc exits by
// returning retval, and the dispatcher reports that value back to
// ThreadJoin.
func (s *Syscalls) ThreadCreate(body ThreadFunc) int {
	tid, err := s.m.ThreadCreate(s.thread(), s.proc(), s.proc().TIdx, body)
	if err != nil {
		return ToSyscall(err)
	}
	return int(tid)
}

// ThreadJoin waits for tid to finish and returns its retval and a 0/-1
// status (original thread_join()).
func (s *Syscalls) ThreadJoin(tid int) (uintptr, int) {
	retval, err := s.m.ThreadJoin(s.thread(), s.y, s.thread(), Tid(tid))
	if err != nil {
		return 0, ToSyscall(err)
	}
	return retval, 0
}
