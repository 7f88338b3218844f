// Package op implements the bg_op progress and cancellation record
// described in spec.md §4.7: a single struct, guarded by its own lock,
// shared between whichever worker goroutine is running a task or
// operation's function and the foreground goroutine reading it for display.
package op

import "sync"

// Op is the progress/cancellation record attached to every TASK or
// OPERATION job. It is never attached to a COMMAND job; commands carry
// their own cancelled flag instead (see spec.md §3).
type Op struct {
	mu       sync.Mutex
	total    int
	done     int
	progress int // -1 means "indeterminate", mirrors the source sentinel
	descr    string
	cancelled bool

	// onChanged is called (outside the lock) after SetTotal, SetDone or
	// SetDescr mutate visible state, standing in for the embedder's job_bar_changed
	// repaint hint. It is best-effort: nil is fine and is a no-op.
	onChanged func()
}

// New creates an Op with the given total, initial description, and the
// sentinel "no progress yet" values spec.md §4.2 describes for a freshly
// added job. Unlike SetDescr, this does not fire onChanged: the job does
// not exist in any caller's view yet.
func New(total int, descr string, onChanged func()) *Op {
	return &Op{
		total:     total,
		progress:  -1,
		descr:     descr,
		onChanged: onChanged,
	}
}

// Snapshot is an immutable copy of the progress record's visible fields,
// safe to read and log after Op has released its lock.
type Snapshot struct {
	Total     int
	Done      int
	Progress  int
	Descr     string
	Cancelled bool
}

// Snapshot returns a consistent copy of the current progress state.
func (o *Op) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Total:     o.total,
		Done:      o.done,
		Progress:  o.progress,
		Descr:     o.descr,
		Cancelled: o.cancelled,
	}
}

// SetTotal replaces the total unit count, e.g. once a scan has learned the
// real item count.
func (o *Op) SetTotal(total int) {
	o.mu.Lock()
	o.total = total
	o.mu.Unlock()
	o.notify()
}

// SetDone replaces the done count and derives progress as a percentage of
// total (or leaves it at -1 if total is zero). Workers are expected to call
// this with a non-decreasing sequence of values; Op does not itself enforce
// that, matching spec.md's invariant 5 being a caller contract.
func (o *Op) SetDone(done int) {
	o.mu.Lock()
	o.done = done
	if o.total > 0 {
		o.progress = done * 100 / o.total
	}
	o.mu.Unlock()
	o.notify()
}

// SetDescr replaces the human-readable description and fires onChanged, the
// Go equivalent of spec.md's op_set_descr calling job_bar_changed.
func (o *Op) SetDescr(descr string) {
	o.mu.Lock()
	o.descr = descr
	o.mu.Unlock()
	o.notify()
}

// Cancelled reports whether cancellation has been requested. Workers
// consult this cooperatively; nothing forces them to stop.
func (o *Op) Cancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

// Cancel requests cancellation and reports whether this call was the one
// that made the transition (spec.md's "was newly cancelled?").
func (o *Op) Cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelled {
		return false
	}
	o.cancelled = true
	return true
}

func (o *Op) notify() {
	if o.onChanged != nil {
		o.onChanged()
	}
}
