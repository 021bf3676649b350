package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findThreadIndex(p *Process, tid Tid) int {
	for i := range p.Threads {
		if p.Threads[i].Tid == tid {
			return i
		}
	}
	return -1
}

func TestThreadCreateFindsUnusedSlot(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]

	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	tid, err := m.ThreadCreate(boot, p, 0, func(y *Yielder) uintptr { return 5 })
	require.NoError(t, err)
	assert.NotEqual(t, p.Threads[0].Tid, tid)

	idx := findThreadIndex(p, tid)
	require.GreaterOrEqual(t, idx, 1)
	assert.Equal(t, ThreadRunnable, p.Threads[idx].State)
	assert.NotZero(t, p.Threads[idx].KStack)
}

func TestThreadCreateFailsWhenPoolFull(t *testing.T) {
	cfgM := newTestMachine()
	boot := cfgM.CPUs()[0]
	p, err := cfgM.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	// NTHREAD defaults to 4; slot 0 is already taken by Spawn.
	for i := 0; i < 3; i++ {
		_, err := cfgM.ThreadCreate(boot, p, 0, func(y *Yielder) uintptr { return 0 })
		require.NoError(t, err)
	}

	_, err = cfgM.ThreadCreate(boot, p, 0, func(y *Yielder) uintptr { return 0 })
	assert.Error(t, err)
}

func TestThreadJoinReturnsRetvalAndFreesSlot(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	tid, err := m.ThreadCreate(boot, p, 0, func(y *Yielder) uintptr { return 42 })
	require.NoError(t, err)
	idx := findThreadIndex(p, tid)
	require.GreaterOrEqual(t, idx, 0)

	susp := p.Threads[idx].co.Dispatch()
	require.Equal(t, SuspendExit, susp.Kind)

	m.lock.Acquire(boot)
	p.Threads[idx].RetVal = susp.RetVal
	m.threadEpilogueLocked(p, idx)
	m.lock.Release(boot)

	retval, err := m.ThreadJoin(boot, nil, &p.Threads[0], tid)
	require.NoError(t, err)
	assert.Equal(t, uintptr(42), retval)
	assert.Equal(t, ThreadUnused, p.Threads[idx].State)
	assert.Equal(t, Tid(0), p.Threads[idx].Tid)
}

func TestThreadJoinUnknownTidIsNotFound(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	_, err = m.ThreadJoin(boot, nil, &p.Threads[0], Tid(99999))
	assert.Error(t, err)
}

func TestWakeupPromotesOnlyMatchingChan(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	_, err = m.ThreadCreate(boot, p, 0, func(y *Yielder) uintptr { return 0 })
	require.NoError(t, err)

	p.Threads[0].State, p.Threads[0].Chan = ThreadSleeping, Chan(1)
	p.Threads[1].State, p.Threads[1].Chan = ThreadSleeping, Chan(2)

	m.Wakeup(boot, Chan(1))

	assert.Equal(t, ThreadRunnable, p.Threads[0].State)
	assert.Equal(t, ThreadSleeping, p.Threads[1].State, "a different channel must not be woken")
}

func TestNextThreadLockedFindsRunnablePeer(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)
	_, err = m.ThreadCreate(boot, p, 0, func(y *Yielder) uintptr { return 0 })
	require.NoError(t, err)

	p.Threads[0].State = ThreadZombie
	idx, ok := m.nextThreadLocked(p, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestNextThreadLockedReportsNoneWhenAllBusy(t *testing.T) {
	m := newTestMachine()
	boot := m.CPUs()[0]
	p, err := m.Spawn(boot, "p", idleBody)
	require.NoError(t, err)

	p.Threads[0].State = ThreadRunning
	_, ok := m.nextThreadLocked(p, 0)
	assert.False(t, ok)
}

func TestThreadAsCLITracksNestedPushPop(t *testing.T) {
	th := &Thread{Tid: 7, intrOn: true}
	th.PushCli()
	assert.False(t, th.intrOn)
	th.PushCli()
	th.PopCli()
	assert.False(t, th.intrOn, "interrupts stay disabled until the outermost pop")
	th.PopCli()
	assert.True(t, th.intrOn)
}
