package kernel

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rheehot/HYU-ELE3021/internal/config"
	"github.com/rheehot/HYU-ELE3021/internal/hal"
	"github.com/rheehot/HYU-ELE3021/internal/spinlock"
)

// Machine owns every piece of scheduler state that lives under the single
// global lock (spec §5: "All scheduler data ... live under one global
// spinlock (ptable.lock)"), plus the collaborators that stand in for the
// out-of-scope VM/trap/APIC layer (spec §1). It is the Go-idiomatic
// replacement for the teacher's package-level globals (kernel/proc.go's
// var proc [NPROC]KProc, var cpu_context Context, var current_proc *KProc)
// and original_source/xv6-public/proc.c's file-scope ptable/mlfq/initproc.
type Machine struct {
	cfg   config.Config
	lock  *spinlock.Lock
	table *ProcessTable
	mlfq  *MLFQ
	clock hal.Clock
	apic  *hal.CPUTable
	pages *hal.PageAllocator

	cpus []*CPU

	nextPid int
	nextTid int

	initProc *Process

	bootID uuid.UUID
	log    zerolog.Logger
}

// New builds a Machine from cfg, wires its MLFQ/stride meta-scheduler, and
// enumerates cfg.NCPU CPUs (pinit + the boot-time CPU table populate in
// the original).
func New(cfg config.Config, logger zerolog.Logger) *Machine {
	bootID := uuid.New()
	m := &Machine{
		cfg:     cfg,
		lock:    spinlock.New("ptable"),
		table:   NewProcessTable(cfg.NPROC),
		mlfq:    NewMLFQ(cfg.NPROC, cfg.Quantum[:], cfg.Expire[:], cfg.MaxTicket, cfg.MaxStride, cfg.MaxPass, cfg.ScalePass),
		clock:   hal.NewSimClock(),
		apic:    hal.NewCPUTable(cfg.NCPU),
		pages:   hal.NewPageAllocator(4096, 0x80100000),
		nextPid: 1,
		nextTid: 1,
		bootID:  bootID,
		log:     logger.With().Str("boot_id", bootID.String()).Logger(),
	}
	m.cpus = make([]*CPU, m.apic.Count())
	for i := range m.cpus {
		m.cpus[i] = &CPU{id: i}
	}
	return m
}

// CPUByAPICID resolves an apic id to its *CPU, mirroring mycpu()'s scan of
// the boot-time CPU table in original_source/xv6-public/proc.c.
func (m *Machine) CPUByAPICID(apicID int) (*CPU, error) {
	idx, err := m.apic.Lookup(apicID)
	if err != nil {
		return nil, err
	}
	return m.cpus[idx], nil
}

// CPU represents one of the machine's cores: the per-CPU state original
// proc.c keeps in struct cpu (current proc, nested-cli counter, saved
// interrupt-enable flag, and the scheduler's own resume context).
type CPU struct {
	id          int
	ncli        int32
	savedIntr   bool
	intrEnabled bool
	current     *Process
	scheduler   hal.Context
}

func (c *CPU) ID() int { return c.id }

// PushCli/PopCli implement spinlock.CLI, mirroring pushcli()/popcli() in
// original_source/xv6-public/proc.c (via its spinlock.c).
func (c *CPU) PushCli() {
	enabled := c.intrEnabled
	c.intrEnabled = false
	if c.ncli == 0 {
		c.savedIntr = enabled
	}
	c.ncli++
}

func (c *CPU) PopCli() {
	if c.ncli < 1 {
		kernelPanic("popcli")
	}
	c.ncli--
	if c.ncli == 0 {
		c.intrEnabled = c.savedIntr
	}
}

// IntrOn/IntrOff stand in for sti()/cli(): direct interrupt-enable toggles
// made outside of any lock acquisition, used by the dispatcher loop's
// "enable interrupts briefly" step (spec §4.E step 1).
func (c *CPU) IntrOn()  { c.intrEnabled = true }
func (c *CPU) IntrOff() { c.intrEnabled = false }

func (c *CPU) Current() *Process { return c.current }

// CPUs exposes the enumerated CPUs (read-only) for the dispatcher
// supervisor in Run.
func (m *Machine) CPUs() []*CPU { return m.cpus }

// Clock exposes the tick source, mostly so tests can Advance() it.
func (m *Machine) Clock() hal.Clock { return m.clock }

func (m *Machine) Config() config.Config { return m.cfg }
