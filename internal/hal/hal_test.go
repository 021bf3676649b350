package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRoundUp(t *testing.T) {
	assert.Equal(t, uint64(0), PageRoundUp(0))
	assert.Equal(t, uint64(PGSize), PageRoundUp(1))
	assert.Equal(t, uint64(PGSize), PageRoundUp(PGSize))
	assert.Equal(t, uint64(2*PGSize), PageRoundUp(PGSize+1))
}

func TestMemorySpaceGrowRoundsUpAndCopyIsIndependent(t *testing.T) {
	as, err := SetupAddressSpace()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), as.Size())

	size, err := as.Grow(100)
	require.NoError(t, err)
	assert.Equal(t, uint64(PGSize), size)

	dup, err := as.Copy()
	require.NoError(t, err)
	assert.Equal(t, as.Size(), dup.Size())

	if _, err := dup.Grow(PGSize + 1); err != nil {
		t.Fatalf("grow dup: %v", err)
	}
	assert.NotEqual(t, as.Size(), dup.Size(), "copy must not alias the original")
}

func TestMemorySpaceShrinkRejectsGrowingTarget(t *testing.T) {
	as, err := SetupAddressSpace()
	require.NoError(t, err)
	_, err = as.Grow(PGSize)
	require.NoError(t, err)

	_, err = as.Shrink(2 * PGSize)
	assert.Error(t, err)
}

func TestPageAllocatorExhaustion(t *testing.T) {
	a := NewPageAllocator(2, 0x1000)
	require.Equal(t, 2, a.Available())

	p1, ok := a.Alloc()
	require.True(t, ok)
	_, ok = a.Alloc()
	require.True(t, ok)

	_, ok = a.Alloc()
	assert.False(t, ok, "third allocation must fail")

	a.Free(p1)
	assert.Equal(t, 1, a.Available())
}

func TestFileTableDupIsIndependentOfOriginal(t *testing.T) {
	orig := NewFileTable()
	dup := orig.Dup()

	orig.CloseAll()
	// CloseAll on orig must not panic or corrupt dup's independent copy.
	dup.CloseAll()
}

func TestSimClockAdvanceIsMonotonic(t *testing.T) {
	c := NewSimClock()
	assert.Equal(t, uint64(0), c.Now())
	assert.Equal(t, uint64(5), c.Advance(5))
	assert.Equal(t, uint64(5), c.Now())
	assert.Equal(t, uint64(8), c.Advance(3))
}

func TestCPUTableLookup(t *testing.T) {
	table := NewCPUTable(3)
	assert.Equal(t, 3, table.Count())

	idx, err := table.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = table.Lookup(99)
	assert.Error(t, err)
}

func TestTrapFrameCloneIsACopy(t *testing.T) {
	tf := TrapFrame{IP: 0x1000, SP: 0x2000}
	clone := tf.Clone()
	clone.IP = 0x9999
	assert.Equal(t, uintptr(0x1000), tf.IP, "clone must not alias the original")
}
