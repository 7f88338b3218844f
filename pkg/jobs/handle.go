package jobs

import (
	"errors"
	"io"
	"time"

	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
	"github.com/clayne/bgjobs/internal/op"
)

// Kind distinguishes the three flavors of tracked background work.
type Kind = jobid.Kind

// Re-export the Kind constants so callers never need to import the
// internal jobid package directly.
const (
	Command   = jobid.Command
	Task      = jobid.Task
	Operation = jobid.Operation
)

// Status is a coarse, display-oriented job status.
type Status = job.Status

// Op is the progress/cancellation handle passed into a TASK/OPERATION
// worker function, matching spec.md §4.7's bg_op.
type Op = op.Op

// Progress is a consistent snapshot of an Op's visible fields.
type Progress = op.Snapshot

// Handle is a refcounted reference to a job, the embedder-facing wrapper
// around the internal job record.
type Handle struct {
	j *job.Job
	m *Manager
}

// ID returns the job's identity, formatted as "job_<suffix>".
func (h *Handle) ID() string { return h.j.ID().String() }

// Kind returns whether this is a COMMAND, TASK or OPERATION job.
func (h *Handle) Kind() Kind { return h.j.Kind() }

// Cmd returns the human-readable description of the job.
func (h *Handle) Cmd() string { return h.j.Cmd() }

// Status derives a coarse display status from the job's internal state.
func (h *Handle) Status() Status { return h.j.Status() }

// IsRunning reports whether the job is still running.
func (h *Handle) IsRunning() bool { return h.j.IsRunning() }

// ExitCode returns the job's exit code; meaningful only once !IsRunning().
func (h *Handle) ExitCode() int { return h.j.ExitCode().Int() }

// WasKilled mirrors spec.md's literal, intentionally-preserved predicate:
// true for every job that is no longer running and has a non-negative exit
// code, not only ones killed by a signal. See DESIGN.md.
func (h *Handle) WasKilled() bool { return h.j.WasKilled() }

// Errors returns everything captured on the job's error stream so far.
func (h *Handle) Errors() string { return h.j.Errors() }

// Output returns a reader over a COMMAND job's captured stdout, if
// CaptureOut was requested, replaying everything captured so far and then
// streaming new data. Returns nil otherwise.
func (h *Handle) Output() io.ReadCloser { return h.j.Output() }

// Progress returns the job's current progress snapshot, or the zero value
// for a COMMAND job (which has no Op).
func (h *Handle) Progress() Progress {
	if o := h.j.Op(); o != nil {
		return o.Snapshot()
	}
	return Progress{}
}

// Cancel requests cancellation: a soft-terminate signal for a COMMAND job,
// or the cooperative bg_op.cancelled flag for a TASK/OPERATION job. It
// returns whether this call made the cancelled/not-cancelled transition.
func (h *Handle) Cancel() bool { return h.j.Cancel() }

// Cancelled reports whether cancellation has been requested.
func (h *Handle) Cancelled() bool { return h.j.Cancelled() }

// Terminate forcibly kills a running COMMAND job without waiting for it to
// exit. It is an error to call this on a TASK/OPERATION job.
func (h *Handle) Terminate() error { return h.j.Terminate() }

// Wait blocks until a COMMAND job exits, closing any streams it still owns
// first to unblock the child. It is an error to call this on a
// TASK/OPERATION job.
func (h *Handle) Wait() error { return h.j.Wait() }

// errStillErroring is returned by WaitErrors when the deadline elapses
// while the drain worker still holds a reference to the job's error
// stream.
var errStillErroring = errors.New("jobs: error stream still draining")

const (
	waitErrorsBudget = 50 * time.Millisecond
	waitErrorsPoll   = 50 * time.Microsecond
)

// WaitErrors is only meaningful once the job is no longer running. It
// bounds-polls (spec.md's ~50ms budget), waking the drain worker each
// iteration, until the job's error stream has been fully drained or the
// deadline elapses.
func (h *Handle) WaitErrors() error {
	deadline := time.Now().Add(waitErrorsBudget)
	for {
		if !h.j.Erroring() {
			return nil
		}
		h.m.drain.Wake()
		if time.Now().After(deadline) {
			return errStillErroring
		}
		time.Sleep(waitErrorsPoll)
	}
}

// Incref adds an extra reference to the job beyond the registry's own.
func (h *Handle) Incref() { h.j.Incref() }

// Decref releases an extra reference taken with Incref.
func (h *Handle) Decref() { h.j.Decref() }

// SetExitCB registers a callback invoked exactly once, after the job stops
// running and before it is removed from the registry.
func (h *Handle) SetExitCB(cb func(*Handle)) {
	h.j.ExitCB = func(*job.Job) { cb(h) }
}
