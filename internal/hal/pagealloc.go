package hal

import "sync"

// PageAllocator simulates the freelist kalloc()/kfree() implement in
// kernel/kalloc.go (Nonepf-xv6-in-go): a fixed pool of page-sized frames.
// Exhausting it is how spec §7's OutOfMemory actually happens, for both
// kernel-stack and user-stack allocation.
type PageAllocator struct {
	mu   sync.Mutex
	free []uintptr
}

// NewPageAllocator pre-fills the freelist with pages pages starting at
// base, mirroring freerange(BSS_END, PHYSTOP).
func NewPageAllocator(pages int, base uintptr) *PageAllocator {
	free := make([]uintptr, pages)
	for i := range free {
		free[i] = base + uintptr(i)*PGSize
	}
	return &PageAllocator{free: free}
}

// Alloc pops one page off the freelist, or reports exhaustion.
func (a *PageAllocator) Alloc() (uintptr, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.free) == 0 {
		return 0, false
	}
	n := len(a.free) - 1
	p := a.free[n]
	a.free = a.free[:n]
	return p, true
}

// Free pushes a page back onto the freelist.
func (a *PageAllocator) Free(p uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free = append(a.free, p)
}

func (a *PageAllocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}
