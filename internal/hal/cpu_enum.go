package hal

import "fmt"

// CPUTable stands in for boot-time CPU enumeration and APIC lookup (spec
// §1, §6). Adapted from mycpu()/cpuid() in
// original_source/xv6-public/proc.c, which scans a fixed cpus[] array for
// a matching lapicid while interrupts are disabled. Here CPUs are
// enumerated up front (no hotplug) and looked up by the opaque id the
// boot sequence assigned them.
type CPUTable struct {
	ids []int
}

// NewCPUTable enumerates n CPUs with ids 0..n-1, mirroring a machine where
// the APIC ids happen to be contiguous.
func NewCPUTable(n int) *CPUTable {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return &CPUTable{ids: ids}
}

// Lookup resolves an APIC id to its CPU index, or returns an
// InvariantViolation-shaped error ("unknown apicid") exactly as mycpu()
// panics on the original.
func (t *CPUTable) Lookup(apicID int) (int, error) {
	for i, id := range t.ids {
		if id == apicID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("hal: unknown apicid %d", apicID)
}

func (t *CPUTable) Count() int { return len(t.ids) }
