package hal

import "sync/atomic"

// FileTable stands in for the out-of-scope file-descriptor and filesystem
// layer (spec §1). It only needs to support what process exit/fork touch:
// duplicating the table on fork and closing everything on exit, including
// the filesystem-operation bracket (begin_op/end_op) that original proc.c
// wraps iput(cwd) in.
//
// Adapted from the NOFILE-sized ofile array and cwd field in
// original_source/xv6-public/proc.c's fork() and exit().
const NumFiles = 16

type file struct {
	refs int32
}

// FileTable is a process's open-file handles plus its current working
// directory handle.
type FileTable struct {
	files [NumFiles]*file
	cwd   *file
}

func NewFileTable() *FileTable {
	return &FileTable{cwd: &file{refs: 1}}
}

// Dup mirrors filedup/idup: bumps refcounts and returns a table an exact
// duplicate of the caller's, ready to be installed on a forked child.
func (ft *FileTable) Dup() *FileTable {
	dup := &FileTable{}
	for i, f := range ft.files {
		if f != nil {
			atomic.AddInt32(&f.refs, 1)
			dup.files[i] = f
		}
	}
	if ft.cwd != nil {
		atomic.AddInt32(&ft.cwd.refs, 1)
		dup.cwd = ft.cwd
	}
	return dup
}

// CloseAll mirrors exit()'s fd-closing loop plus the begin_op/iput/end_op
// bracket around releasing cwd.
func (ft *FileTable) CloseAll() {
	for i, f := range ft.files {
		if f == nil {
			continue
		}
		if atomic.AddInt32(&f.refs, -1) == 0 {
			// would call fileclose(f) here; nothing to release in
			// this in-memory stand-in.
		}
		ft.files[i] = nil
	}
	if ft.cwd != nil {
		// begin_op(); iput(cwd); end_op();
		atomic.AddInt32(&ft.cwd.refs, -1)
		ft.cwd = nil
	}
}
