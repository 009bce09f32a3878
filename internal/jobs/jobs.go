// Package jobs implements spec.md §4.H: a fixed set of background job
// types, each served by its own worker goroutine draining a FIFO queue,
// so slow syscalls (closing a large file, fsyncing the append-only log)
// never block the reactor goroutine.
//
// There is no teacher equivalent — torua has no background worker pool —
// so this is built directly from spec.md's queue-per-type/condvar
// contract, using sync.Mutex+sync.Cond as the idiomatic Go translation of
// the pthread mutex+condvar pair the original's bio.c uses (see
// original_source/src/bio.c, consulted only for job-type naming).
package jobs

// Type identifies one of the fixed background job categories.
type Type int

const (
	// CloseFile closes (and, if non-nil, discards) a file descriptor that
	// would otherwise block the caller — e.g. replacing a large append-only
	// log file.
	CloseFile Type = iota
	// LogFsync performs an fsync that the reactor must not wait on.
	LogFsync
	// AofRewritePrep runs append-only-log housekeeping; its one caller
	// (cmd/redis-server at shutdown) flushes the propagation sink and
	// checks the log's last error. No rewrite or fork happens; both are
	// out of scope (spec.md §1).
	AofRewritePrep
	numTypes
)

func (t Type) String() string {
	switch t {
	case CloseFile:
		return "close_file"
	case LogFsync:
		return "log_fsync"
	case AofRewritePrep:
		return "aof_rewrite_prep"
	default:
		return "unknown"
	}
}

// Job is one unit of work; Run is executed on the job type's worker
// goroutine, never on the caller's.
type Job struct {
	Type Type
	Run  func()
}
