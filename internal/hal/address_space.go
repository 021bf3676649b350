// Package hal stands in for the collaborators spec.md §1 calls out as
// external and out of scope: virtual-memory management, the trap/interrupt
// dispatch path, the raw context-switch primitive, boot-time CPU/APIC
// enumeration, and console output. Only their interfaces are referenced by
// internal/kernel; this package supplies a deterministic in-memory
// implementation suitable for driving the scheduler core without real
// hardware underneath it.
//
// Adapted from kernel/vm.go and kernel/kalloc.go (Nonepf-xv6-in-go), which
// implemented page-table walks and a freelist allocator against physical
// RISC-V memory via go:linkname hooks (kvminit, kalloc, mappages, walk).
// Those hooks have no meaning off real hardware, so AddressSpace tracks
// only what the scheduler core actually touches: a process's total mapped
// size in bytes, rounded to page boundaries exactly as growproc/allocuvm do
// in the original.
package hal

import "fmt"

// PGSize is the user page size (spec §6 tunable PGSIZE).
const PGSize = 4096

// AddressSpace is the per-process address space handle referenced by
// spec §3 ("address-space handle") and §4.A (alloc/fork/exit/wait).
type AddressSpace interface {
	// Size returns the current mapped size in bytes.
	Size() uint64
	// Copy duplicates the address space for fork(), as copyuvm does.
	Copy() (AddressSpace, error)
	// Grow maps additional pages, rounding newSize up to PGSize as
	// allocuvm does, and returns the new size.
	Grow(newSize uint64) (uint64, error)
	// Free releases every mapping, as freevm does.
	Free()
}

// MemorySpace is the default AddressSpace: a page-rounded byte counter.
// It never fails to "allocate" because this module does not model physical
// memory exhaustion beyond the fixed-size process/thread tables already
// enforced by internal/kernel.
type MemorySpace struct {
	size uint64
}

// SetupAddressSpace returns a freshly allocated, empty address space
// (setup_address_space / setupkvm).
func SetupAddressSpace() (*MemorySpace, error) {
	return &MemorySpace{}, nil
}

func (m *MemorySpace) Size() uint64 { return m.size }

func (m *MemorySpace) Copy() (AddressSpace, error) {
	return &MemorySpace{size: m.size}, nil
}

func (m *MemorySpace) Grow(newSize uint64) (uint64, error) {
	if newSize < m.size {
		return m.Shrink(newSize)
	}
	m.size = PageRoundUp(newSize)
	return m.size, nil
}

// Shrink lowers the mapped size (deallocuvm's counterpart to Grow).
func (m *MemorySpace) Shrink(newSize uint64) (uint64, error) {
	if newSize > m.size {
		return 0, fmt.Errorf("hal: shrink target %d exceeds current size %d", newSize, m.size)
	}
	m.size = PageRoundUp(newSize)
	return m.size, nil
}

func (m *MemorySpace) Free() { m.size = 0 }

// PageRoundUp rounds sz up to the next PGSize boundary (PGROUNDUP).
func PageRoundUp(sz uint64) uint64 {
	return (sz + PGSize - 1) &^ (PGSize - 1)
}
