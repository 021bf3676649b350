package spinlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCLI struct {
	id        int
	ncli      int32
	savedIntr bool
	intrOn    bool
}

func (f *fakeCLI) ID() int { return f.id }

func (f *fakeCLI) PushCli() {
	if f.ncli == 0 {
		f.savedIntr = f.intrOn
	}
	f.intrOn = false
	f.ncli++
}

func (f *fakeCLI) PopCli() {
	f.ncli--
	if f.ncli == 0 {
		f.intrOn = f.savedIntr
	}
}

func TestAcquireReleaseTracksHolder(t *testing.T) {
	l := New("ptable")
	a := &fakeCLI{id: 0}

	assert.False(t, l.Holding(a))
	l.Acquire(a)
	assert.True(t, l.Holding(a))
	assert.Equal(t, int32(1), a.ncli)

	l.Release(a)
	assert.False(t, l.Holding(a))
	assert.Equal(t, int32(0), a.ncli)
}

func TestNestedPushPopPreservesInterruptState(t *testing.T) {
	a := &fakeCLI{id: 1, intrOn: true}
	l := New("ptable")

	l.Acquire(a)
	assert.False(t, a.intrOn, "interrupts disabled while held")
	l.Release(a)
	assert.True(t, a.intrOn, "interrupts restored once fully released")
}

func TestHoldingDistinguishesCallers(t *testing.T) {
	l := New("ptable")
	a := &fakeCLI{id: 0}
	b := &fakeCLI{id: 1}

	l.Acquire(a)
	require.True(t, l.Holding(a))
	assert.False(t, l.Holding(b))
	l.Release(a)
}
