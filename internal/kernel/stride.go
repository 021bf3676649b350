package kernel

import "golang.org/x/exp/slices"

// Stride implements the proportional-share meta-scheduler of spec §4.C.
// Adapted from original_source/xv6-public/mlfq.c's stride_init /
// stride_append / stride_delete / stride_update / stride_next, which the
// teacher's Go port (kernel/proc.go) never carried over. Pass values are
// fixed-point integers with a 32-bit fractional part (spec §9
// design note: "Fixed-point with a 32-bit fractional part covers the
// required dynamic range without saving FPU context at every switch"),
// rather than the original's bare float; tickets are plain integer counts.
//
// Slot 0 is always the MLFQ aggregate (spec §3, design note: "Use a
// tagged variant StrideSlot = { MlfqAggregate, Process(index) } rather
// than an out-of-band pointer value" — modeled here as Participant).
const PassScale int64 = 1 << 32

// Participant identifies what a stride slot is scheduling: either the
// MLFQ aggregate (slot 0) or a concrete reserved-share process.
type Participant struct {
	Aggregate bool
	Proc      *Process
}

type strideSlot struct {
	ticket int64 // 0 when the slot is inactive
	pass   int64 // fixed-point, PassScale-scaled; -1 when inactive
	owner  Participant
	active bool
}

// Stride is the fixed-size parallel-array stride state of spec §3.
type Stride struct {
	maxTicket int64
	maxStride int64
	quantum   uint64 // per-slice quantum for stride participants (stride_init's quantum=5)
	total     int64 // sum of tickets held by slots 1..N-1
	slots     []strideSlot
}

// NewStride initializes slot 0 to maxTicket tickets and accepts maxStride
// as the admission cap, per spec §9 design note (d): "the spec uses the
// variant that initializes slot 0 to MAXTICKET and accepts MAXSTRIDE as
// the admission cap."
func NewStride(n int, maxTicket, maxStride int64) *Stride {
	s := &Stride{
		maxTicket: maxTicket,
		maxStride: maxStride,
		quantum:   5,
		slots:     make([]strideSlot, n),
	}
	s.slots[0] = strideSlot{
		ticket: maxTicket,
		pass:   0,
		owner:  Participant{Aggregate: true},
		active: true,
	}
	for i := 1; i < n; i++ {
		s.slots[i] = strideSlot{ticket: 0, pass: -1, active: false}
	}
	return s
}

// Append admits p with the given ticket usage, moving usage tickets from
// slot 0 to a newly claimed slot (stride_append). It rejects usage <= 0
// and requests that would push the reserved total over maxStride, or if
// no free slot exists.
func (s *Stride) Append(p *Process, usage int64) (int, error) {
	if usage <= 0 || s.total+usage > s.maxStride {
		return 0, newErr(KindShareRefused, "stride.Append", ErrShareRefused)
	}

	idx := slices.IndexFunc(s.slots[1:], func(sl strideSlot) bool { return !sl.active })
	if idx == -1 {
		return 0, newErr(KindShareRefused, "stride.Append", ErrOutOfSlots)
	}
	idx++ // s.slots[1:] was offset by one slot to skip the aggregate

	minPass := s.minActivePass()

	s.total += usage
	s.slots[0].ticket -= usage
	s.slots[idx] = strideSlot{
		ticket: usage,
		pass:   minPass,
		owner:  Participant{Proc: p},
		active: true,
	}
	return idx, nil
}

// minActivePass returns the minimum pass value across all active slots
// (slot 0 included), so a newly admitted participant neither starves nor
// gains arrears (spec §4.C).
func (s *Stride) minActivePass() int64 {
	min := s.slots[0].pass
	for i := 1; i < len(s.slots); i++ {
		if s.slots[i].active && s.slots[i].pass < min {
			min = s.slots[i].pass
		}
	}
	return min
}

// Delete returns idx's tickets to slot 0 and deactivates it (stride_delete).
func (s *Stride) Delete(idx int) {
	if idx <= 0 || idx >= len(s.slots) {
		return
	}
	usage := s.slots[idx].ticket
	s.total -= usage
	s.slots[0].ticket += usage
	s.slots[idx] = strideSlot{ticket: 0, pass: -1, active: false}
}

// UpdatePass advances idx's pass by maxTicket/ticket[idx] after it has run
// a slice, rescaling every active pass if it would exceed maxPass
// (stride_update). maxPass and scalePass arrive in raw ticket-equivalent
// units, the same units config.Config stores them in, and are scaled up to
// PassScale here to compare against the PassScale-scaled pass values.
func (s *Stride) UpdatePass(idx int, maxPass, scalePass int64) {
	slot := &s.slots[idx]
	slot.pass += (s.maxTicket * PassScale) / slot.ticket

	maxPass *= PassScale
	scalePass *= PassScale

	if slot.pass > maxPass {
		shrink := maxPass - scalePass
		for i := range s.slots {
			if s.slots[i].active {
				s.slots[i].pass -= shrink
			}
		}
	}
}

// Next returns the active, runnable slot with the smallest pass value,
// breaking ties by slot index (spec §4.C "Selection"). Slot 0 (the MLFQ
// aggregate) is always an eligible candidate: it has no "runnable" state
// of its own, unlike the original's buggy stride_next, which overwrote
// its iterator instead of tracking the true minimum (spec §9 open
// question (a) — this implementation tracks the minimum explicitly).
func (s *Stride) Next() (Participant, int) {
	bestIdx := 0
	bestPass := s.slots[0].pass
	bestTidx := -1

	for i := 1; i < len(s.slots); i++ {
		slot := &s.slots[i]
		if !slot.active || slot.pass >= bestPass {
			continue
		}
		tidx, ok := slot.owner.Proc.RunnableThreadIndex()
		if !ok {
			continue
		}
		bestIdx = i
		bestPass = slot.pass
		bestTidx = tidx
	}

	return s.slots[bestIdx].owner, bestTidx
}

// Tickets returns a copy of the slot ticket array, for invariant checks
// and tests (spec §8: "sum(stride.ticket[i]) == MAXTICKET at all times").
func (s *Stride) Tickets() []int64 {
	out := make([]int64, len(s.slots))
	for i, slot := range s.slots {
		out[i] = slot.ticket
	}
	return out
}

// ReservedTotal returns the sum of tickets held by slots 1..N-1.
func (s *Stride) ReservedTotal() int64 { return s.total }

// AggregateTicket returns slot 0's ticket count.
func (s *Stride) AggregateTicket() int64 { return s.slots[0].ticket }

// Quantum returns the stride scheduler's own slice quantum, used by
// mlfq_yieldable for stride participants.
func (s *Stride) Quantum() uint64 { return s.quantum }
