package kernel

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Kind classifies the recoverable error conditions spec §7 names.
type Kind int

const (
	// KindOutOfSlots: no free process or thread slot.
	KindOutOfSlots Kind = iota
	// KindOutOfMemory: stack or address-space allocation failed.
	KindOutOfMemory
	// KindShareRefused: stride capacity exceeded or non-positive request.
	KindShareRefused
	// KindNotFound: kill/thread_join target absent.
	KindNotFound
)

// Error is a recoverable scheduler error. All of these surface to the
// syscall boundary as -1 (spec §7 "Policy").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kernel: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kernel: %s", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

var (
	ErrOutOfSlots    = errors.New("no free slot")
	ErrOutOfMemory   = errors.New("allocation failed")
	ErrShareRefused  = errors.New("share refused")
	ErrNotFound      = errors.New("not found")
)

// ToSyscall collapses any recoverable *Error into the spec §6/§7 -1
// convention. A nil error maps to 0 (or, for calls with a value, the
// caller supplies that value directly instead of calling this).
func ToSyscall(err error) int {
	if err == nil {
		return 0
	}
	return -1
}

// kernelPanic reports an InvariantViolation (spec §7): these are never
// recoverable and never surface to userspace, so the kernel halts with a
// diagnostic, mirroring every bare panic("...") call in
// original_source/xv6-public/proc.c and mlfq.c.
func kernelPanic(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Fatal().Str("kind", "InvariantViolation").Msg(msg)
	// log.Fatal calls os.Exit(1); panic here only matters for tests that
	// swap zerolog's exit hook, mirroring the original's infinite loop
	// after panic on a machine with no one to catch it.
	panic(msg)
}
