package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyscallsGetLevReportsMLFQLevel(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	var got int

	p, err := m.Spawn(boot, "p", func(y *Yielder) uintptr {
		got = NewSyscalls(m, y).GetLev()
		return 0
	})
	require.NoError(t, err)
	p.Threads[0].co.Dispatch()

	assert.Equal(t, 0, got)
}

func TestSyscallsSetCPUShareThenGetLevReportsStride(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	var before, after int

	p, err := m.Spawn(boot, "p", func(y *Yielder) uintptr {
		sc := NewSyscalls(m, y)
		before = sc.GetLev()
		if rc := sc.SetCPUShare(20); rc != 0 {
			return 1
		}
		after = sc.GetLev()
		return 0
	})
	require.NoError(t, err)
	p.Threads[0].co.Dispatch()

	assert.Equal(t, 0, before)
	assert.Equal(t, -1, after)
}

// TestSyscallsThreadCreateAndJoinRoundTrip drives a process's thread 0
// through thread_create/thread_join by hand: no dispatcher loop is
// running, so the test itself plays dispatcher for both the spawning
// thread and the thread it creates, acquiring the machine lock exactly
// where Machine.dispatchCPU would.
func TestSyscallsThreadCreateAndJoinRoundTrip(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	var joinedRetval uintptr
	var joinedStatus int

	proc, err := m.Spawn(boot, "p", func(y *Yielder) uintptr {
		sc := NewSyscalls(m, y)
		tid := sc.ThreadCreate(func(inner *Yielder) uintptr { return 77 })
		require.GreaterOrEqual(t, tid, 0)

		self := y.owner.proc
		idx := findThreadIndex(self, Tid(tid))
		require.GreaterOrEqual(t, idx, 0)

		childSusp := self.Threads[idx].co.Dispatch()
		require.Equal(t, SuspendExit, childSusp.Kind)

		m.lock.Acquire(y.owner)
		self.Threads[idx].RetVal = childSusp.RetVal
		m.threadEpilogueLocked(self, idx)
		m.lock.Release(y.owner)

		joinedRetval, joinedStatus = sc.ThreadJoin(tid)
		return 0
	})
	require.NoError(t, err)

	susp := proc.Threads[0].co.Dispatch()
	assert.Equal(t, SuspendExit, susp.Kind)
	assert.Equal(t, uintptr(77), joinedRetval)
	assert.Equal(t, 0, joinedStatus)
}

func TestSyscallsYieldMarksThreadRunnable(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	p, err := m.Spawn(boot, "p", func(y *Yielder) uintptr {
		NewSyscalls(m, y).Yield()
		return 0
	})
	require.NoError(t, err)

	p.Threads[0].State = ThreadRunning
	susp := p.Threads[0].co.Dispatch()
	assert.Equal(t, SuspendSlice, susp.Kind)
	assert.Equal(t, ThreadRunnable, p.Threads[0].State)
}
