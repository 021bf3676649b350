package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoroutineDispatchReturnsEachSlice(t *testing.T) {
	owner := &Thread{Tid: 1}
	co := NewCoroutine(owner, func(y *Yielder) uintptr {
		y.Tick(3)
		y.Tick(4)
		return 9
	})

	susp := co.Dispatch()
	require.Equal(t, SuspendSlice, susp.Kind)
	assert.Equal(t, uint64(3), susp.Ticks)

	susp = co.Dispatch()
	require.Equal(t, SuspendSlice, susp.Kind)
	assert.Equal(t, uint64(4), susp.Ticks)

	susp = co.Dispatch()
	require.Equal(t, SuspendExit, susp.Kind)
	assert.Equal(t, uintptr(9), susp.RetVal)
}

func TestCoroutineSleepOnReportsChan(t *testing.T) {
	owner := &Thread{Tid: 2}
	co := NewCoroutine(owner, func(y *Yielder) uintptr {
		y.SleepOn(Chan(0xabc))
		return 0
	})

	susp := co.Dispatch()
	require.Equal(t, SuspendSleep, susp.Kind)
	assert.Equal(t, Chan(0xabc), susp.Chan)
}

func TestYielderKilledReflectsOwningProcess(t *testing.T) {
	proc := &Process{}
	owner := &Thread{Tid: 3, proc: proc}

	var sawKilled bool
	co := NewCoroutine(owner, func(y *Yielder) uintptr {
		sawKilled = y.Killed()
		return 0
	})

	proc.Killed = true
	co.Dispatch()
	assert.True(t, sawKilled)
}

func TestDispatchBlocksUntilResumed(t *testing.T) {
	owner := &Thread{Tid: 4}
	started := make(chan struct{})
	co := NewCoroutine(owner, func(y *Yielder) uintptr {
		close(started)
		y.Tick(1)
		return 0
	})

	done := make(chan Suspension, 1)
	go func() { done <- co.Dispatch() }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("coroutine body never ran")
	}

	select {
	case susp := <-done:
		assert.Equal(t, SuspendSlice, susp.Kind)
	case <-time.After(time.Second):
		t.Fatal("Dispatch never returned")
	}
}
