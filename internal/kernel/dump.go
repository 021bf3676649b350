package kernel

import (
	"fmt"
	"strings"
)

// Dump renders a procdump-style snapshot of every live process and the
// stride meta-scheduler's ticket table (spec's SUPPLEMENTED FEATURES:
// "the original's mlfq_log/procdump debug dumps ... as Machine.Dump()").
// Grounded in the plain fixed-column dump original_source/xv6-public's
// procdump() prints via cprintf, replacing direct console writes with a
// returned string the CLI/zerolog can place wherever it wants.
func (m *Machine) Dump(cpu *CPU) string {
	m.lock.Acquire(cpu)
	defer m.lock.Release(cpu)

	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-10s %-9s %-5s %-4s %s\n", "PID", "NAME", "STATE", "LEVEL", "TIX", "THREADS")
	for i := range m.table.Procs {
		p := &m.table.Procs[i]
		if p.State == ProcUnused {
			continue
		}
		level := "-"
		ticket := "-"
		if p.Sched.Level >= 0 {
			level = fmt.Sprintf("%d", p.Sched.Level)
		} else {
			ticket = fmt.Sprintf("%d", m.mlfq.Stride().Tickets()[p.Sched.Index])
		}

		var threads []string
		for _, t := range p.Threads {
			if t.State == ThreadUnused {
				continue
			}
			threads = append(threads, fmt.Sprintf("%d:%s", t.Tid, t.State))
		}

		fmt.Fprintf(&b, "%-4d %-10s %-9s %-5s %-4s %s\n",
			p.Pid, p.Name, p.State, level, ticket, strings.Join(threads, ","))
	}

	fmt.Fprintf(&b, "stride: aggregate=%d reserved=%d/%d\n",
		m.mlfq.Stride().AggregateTicket(), m.mlfq.Stride().ReservedTotal(), m.cfg.MaxStride)

	return b.String()
}
