package hal

// TrapFrame is the saved user-mode register state xv6 stores at a fixed
// offset inside each thread's kernel stack (spec §3: "trap frame pointer
// points inside its kernel stack"). The core never interprets these fields
// beyond copying and patching them; the trap/interrupt dispatcher that
// would actually restore them into hardware registers is out of scope
// (spec §1).
//
// Adapted from the trapframe handling in original_source/xv6-public/proc.c
// (allocproc, fork, thread_create): segment registers and flags are
// inherited by copying the frame, the instruction pointer is patched to
// the entry point, and the stack pointer is patched to the freshly built
// user stack.
type TrapFrame struct {
	IP       uintptr // instruction pointer: where user-mode execution resumes
	SP       uintptr // user stack pointer
	ReturnV  uintptr // return-value register (fork: cleared to 0 in the child)
	Segments [4]uintptr
	Flags    uintptr
}

// Clone copies a trap frame so that thread_create can inherit the calling
// thread's segment registers and flags, and fork can inherit the whole
// frame before patching ReturnV.
func (tf TrapFrame) Clone() TrapFrame {
	return tf
}

// Context is the saved kernel-only register set switched by the raw
// context-switch primitive (spec §6: "context_switch(from, to)"). It is
// opaque to the scheduler core: construction and interpretation belong to
// the out-of-scope context-switch collaborator. Kept only so that
// Thread/Process structs have somewhere to park it, matching xv6's
// p->context field.
type Context struct {
	ResumeIP uintptr
}
