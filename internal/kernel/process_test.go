package kernel

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rheehot/HYU-ELE3021/internal/config"
	"github.com/rheehot/HYU-ELE3021/internal/hal"
)

func newTestMachine() *Machine {
	return New(config.Default(), zerolog.Nop())
}

func findProcess(m *Machine, pid Pid) *Process {
	for i := range m.table.Procs {
		if m.table.Procs[i].Pid == pid {
			return &m.table.Procs[i]
		}
	}
	return nil
}

func idleBody(y *Yielder) uintptr {
	for {
		y.Tick(0)
	}
}

func TestSpawnMakesFirstProcessInit(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	p, err := m.Spawn(boot, "init", idleBody)
	require.NoError(t, err)

	assert.Equal(t, ProcRunnable, p.State)
	assert.Equal(t, ThreadRunnable, p.Threads[0].State)
	assert.Same(t, p, p.Parent, "the first spawned process parents itself")
}

func TestSpawnOrphansReparentToInit(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	init, err := m.Spawn(boot, "init", idleBody)
	require.NoError(t, err)

	child, err := m.Spawn(boot, "other", idleBody)
	require.NoError(t, err)

	assert.Same(t, init, child.Parent)
}

func TestForkClonesTrapFrameAndSwapsActiveStack(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	parent, err := m.Spawn(boot, "parent", idleBody)
	require.NoError(t, err)

	parent.TIdx = 1
	parent.Threads[1].TF = &hal.TrapFrame{IP: 0x2000, ReturnV: 0xffff}
	parent.UStacks[0] = 0x1111
	parent.UStacks[1] = 0x2222

	pid, err := m.Fork(boot, parent, func(y *Yielder) uintptr { return 7 })
	require.NoError(t, err)

	child := findProcess(m, pid)
	require.NotNil(t, child)

	assert.Equal(t, uintptr(0x2000), child.Threads[0].TF.IP)
	assert.Equal(t, uintptr(0), child.Threads[0].TF.ReturnV, "fork always clears the child's return value")
	assert.Equal(t, uint64(0x2222), child.UStacks[0], "the forking thread's own stack slot swaps into index 0")
	assert.Equal(t, uint64(0x1111), child.UStacks[1])
	assert.Same(t, parent, child.Parent)

	susp := child.Threads[0].co.Dispatch()
	assert.Equal(t, SuspendExit, susp.Kind)
	assert.Equal(t, uintptr(7), susp.RetVal)
}

func TestExitWakesParentAndReparentsChildren(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	init, err := m.Spawn(boot, "init", idleBody)
	require.NoError(t, err)

	parent, err := m.Spawn(boot, "parent", idleBody)
	require.NoError(t, err)

	pid, err := m.Fork(boot, parent, func(y *Yielder) uintptr { return 0 })
	require.NoError(t, err)
	child := findProcess(m, pid)
	require.NotNil(t, child)

	m.ExitProcess(boot, parent)

	assert.Equal(t, ProcZombie, parent.State)
	assert.Equal(t, ThreadZombie, parent.Threads[0].State)
	assert.Same(t, init, child.Parent, "orphan reparents to init")
}

func TestWaitReapsZombieChild(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	parent, err := m.Spawn(boot, "parent", idleBody)
	require.NoError(t, err)

	pid, err := m.Fork(boot, parent, func(y *Yielder) uintptr { return 0 })
	require.NoError(t, err)
	child := findProcess(m, pid)
	require.NotNil(t, child)

	m.ExitProcess(boot, child)

	reaped, err := m.WaitProcess(boot, nil, parent)
	require.NoError(t, err)
	assert.Equal(t, pid, reaped)
	assert.Equal(t, ProcUnused, child.State, "the reaped slot is cleared for reuse")
}

func TestWaitFailsWithNoChildren(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	_, err := m.Spawn(boot, "init", idleBody)
	require.NoError(t, err)

	lonely, err := m.Spawn(boot, "lonely", idleBody)
	require.NoError(t, err)

	_, err = m.WaitProcess(boot, nil, lonely)
	assert.Error(t, err)
}

func TestKillSetsFlagAndWakesSleepers(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	p, err := m.Spawn(boot, "victim", idleBody)
	require.NoError(t, err)
	p.Threads[0].State = ThreadSleeping
	p.Threads[0].Chan = Chan(0x1)

	require.NoError(t, m.KillProcess(boot, p.Pid))
	assert.True(t, p.Killed)
	assert.Equal(t, ThreadRunnable, p.Threads[0].State)
}

func TestKillUnknownPidIsNotFound(t *testing.T) {
	m := newTestMachine()
	err := m.KillProcess(m.CPUs()[0], Pid(999))
	assert.Error(t, err)
}

func TestSetCPUShareMovesProcessOntoStride(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	require.NoError(t, m.SetCPUShare(boot, p, 20))
	assert.Equal(t, -1, m.GetLev(p))
}

func TestSetCPUShareRejectsNonPositivePercent(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	assert.Error(t, m.SetCPUShare(boot, p, 0))
}
