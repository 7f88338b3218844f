// Package job implements bg_job from spec.md §3: the single record type
// shared by COMMAND, TASK and OPERATION jobs, with its fields grouped by
// which actor is allowed to write them.
package job

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/clayne/bgjobs/internal/jobid"
	"github.com/clayne/bgjobs/internal/op"
	"github.com/clayne/bgjobs/internal/safebuffer"
	"github.com/clayne/bgjobs/internal/spawn"
)

// ErrNotCommand is returned by COMMAND-only operations when called on a
// TASK or OPERATION job.
var ErrNotCommand = errors.New("job: operation only valid for a COMMAND job")

// Job is a single tracked unit of background work.
type Job struct {
	id       jobid.ID
	kind     jobid.Kind
	cmd      string
	withBgOp bool
	inMenu   bool

	// registry linkage, written only by the foreground goroutine
	OnJobBar   bool
	ExitCB     func(*Job)
	SkipErrors bool

	// shared status, guarded by statusMu
	statusMu sync.Mutex
	running  bool
	exitCode ExitCode
	useCount int
	erroring bool
	done     chan struct{} // closed exactly once, when running transitions to false

	// shared error buffer, guarded internally by errLog's own lock
	errlog errLog

	// external-command stdio (COMMAND only)
	proc       spawn.Proc
	errStream  io.ReadCloser // nil if NONE / merged
	input      io.WriteCloser
	output     io.ReadCloser
	outputBuf  *safebuffer.Buffer // backs output when CaptureOut was requested
	ownsInput  bool
	ownsOutput bool
	cancelled  bool // COMMAND soft-cancel flag, foreground-goroutine only

	// progress/cancel record (TASK/OPERATION only)
	bgOp *op.Op
}

// New constructs a job record. It does not start anything: for a COMMAND
// job, call Attach once the process has actually been spawned; for a
// TASK/OPERATION job, the caller (internal/task) supplies the Op via
// NewOp and marks it finished when the worker function returns.
func New(kind jobid.Kind, cmd string, withBgOp, inMenu bool) (*Job, error) {
	id, err := jobid.New()
	if err != nil {
		return nil, err
	}

	j := &Job{
		id:       id,
		kind:     kind,
		cmd:      cmd,
		withBgOp: withBgOp,
		inMenu:   inMenu,
		running:  true,
		exitCode: NotDetermined,
		done:     make(chan struct{}),
	}

	return j, nil
}

// Attach wires a freshly spawned external command's platform resources
// into the job. Only called for COMMAND jobs, exactly once.
func (j *Job) Attach(res *spawn.Result) {
	j.proc = res.Proc
	if res.ErrStream != nil {
		j.errStream = res.ErrStream
	}
	j.input = res.Input
	j.ownsInput = res.Input != nil

	if res.Output != nil {
		j.output = res.Output
		j.outputBuf = safebuffer.New(j.done)
		j.ownsOutput = true
		go io.Copy(j.outputBuf, res.Output) //nolint:errcheck
	}

	j.statusMu.Lock()
	if j.errStream != nil {
		j.useCount++
		j.erroring = true
	}
	j.statusMu.Unlock()
}

// NewOp attaches a progress record to a TASK/OPERATION job. Called once by
// internal/task immediately after New.
func (j *Job) NewOp(total int, descr string, onChanged func()) *op.Op {
	j.bgOp = op.New(total, descr, onChanged)
	return j.bgOp
}

// ID returns the job's identity.
func (j *Job) ID() jobid.ID { return j.id }

// Kind returns whether this is a COMMAND, TASK or OPERATION job.
func (j *Job) Kind() jobid.Kind { return j.kind }

// Cmd returns the human-readable description of the job.
func (j *Job) Cmd() string { return j.cmd }

// WithBgOp reports whether this job carries a progress record.
func (j *Job) WithBgOp() bool { return j.withBgOp }

// InMenu reports whether this job should be listed in the jobs menu.
func (j *Job) InMenu() bool { return j.inMenu }

// Op returns the job's progress/cancel record, or nil for a COMMAND job.
func (j *Job) Op() *op.Op { return j.bgOp }

// Pid returns the child process id for a COMMAND job, or 0 otherwise.
func (j *Job) Pid() int {
	if j.proc == nil {
		return 0
	}
	return j.proc.Pid()
}

// Done returns a channel closed once the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// IsRunning reports the job's running state.
func (j *Job) IsRunning() bool {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return j.running
}

// ExitCode returns the job's exit code; meaningful only once !IsRunning().
func (j *Job) ExitCode() ExitCode {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return j.exitCode
}

// WasKilled mirrors spec.md's literal, deliberately-preserved predicate:
// !running && exit_code >= 0. This is true for every normally exited child,
// not only ones actually killed by a signal; see DESIGN.md for why this is
// kept as-is rather than "fixed".
func (j *Job) WasKilled() bool {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return !j.running && j.exitCode >= 0
}

// Status derives a coarse display status from running/cancelled.
func (j *Job) Status() Status {
	j.statusMu.Lock()
	running := j.running
	cancelled := j.cancelled
	j.statusMu.Unlock()

	if j.kind != jobid.Command && j.bgOp != nil {
		cancelled = j.bgOp.Cancelled()
	}

	switch {
	case running:
		return StatusRunning
	case cancelled:
		return StatusStopped
	default:
		return StatusCompleted
	}
}

// Erroring reports whether the drain worker still holds a reference to
// this job's error stream.
func (j *Job) Erroring() bool {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return j.erroring
}

// UseCount returns the job's current extra-reference count.
func (j *Job) UseCount() int {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return j.useCount
}

// CanRemove reports whether the registry may free this job: it must have
// stopped running and have no outstanding references.
func (j *Job) CanRemove() bool {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return !j.running && j.useCount == 0
}

// MarkFinished transitions the job to stopped with the given exit code. It
// is idempotent: only the first call has any effect, matching spec.md's
// requirement that exit_cb fires at most once and strictly after running
// becomes false.
func (j *Job) MarkFinished(code ExitCode) {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	if !j.running {
		return
	}
	j.running = false
	j.exitCode = code
	close(j.done)
}

// Incref adds an extra reference beyond the registry's own ownership.
func (j *Job) Incref() {
	j.statusMu.Lock()
	j.useCount++
	j.statusMu.Unlock()
}

// Decref releases an extra reference. It panics if use_count would go
// negative, matching spec.md's invariant 3 (an assertion in the source).
func (j *Job) Decref() {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	if j.useCount == 0 {
		panic("job: decref of use_count already at zero")
	}
	j.useCount--
}

// DrainRelease is called by the error-drain worker exactly once, when it
// observes EOF/error on the job's error stream and removes it from its
// private sublist. It lowers use_count and clears erroring.
func (j *Job) DrainRelease() {
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	if !j.erroring {
		return
	}
	j.erroring = false
	j.useCount--
}

// AppendError appends bytes read from the error stream to the job's error
// log. Called only by the error-drain worker.
func (j *Job) AppendError(p []byte) { j.errlog.Append(p) }

// Errors returns the complete concatenation of everything captured on the
// job's error stream so far.
func (j *Job) Errors() string { return j.errlog.Full() }

// SwapNewErrors returns the bytes accumulated since the last call and
// resets the pending delta, implementing spec.md invariant 6.
func (j *Job) SwapNewErrors() []byte { return j.errlog.SwapNew() }

// ErrStream returns the job's raw error-stream handle, or nil if it has
// none (NONE, or MergeStreams was used).
func (j *Job) ErrStream() io.ReadCloser { return j.errStream }

// Input returns the writable stream connected to the child's stdin, or nil
// if SupplyInput was not requested or the caller already claimed it.
func (j *Job) Input() io.WriteCloser {
	if !j.ownsInput {
		return nil
	}
	return j.input
}

// ClaimInput transfers ownership of the input stream to the caller: the
// job will no longer close it itself.
func (j *Job) ClaimInput() io.WriteCloser {
	in := j.input
	j.ownsInput = false
	return in
}

// Output returns a reader over the child's captured stdout, replaying
// everything captured so far and then streaming new data, or nil if
// CaptureOut was not requested.
func (j *Job) Output() io.ReadCloser {
	if j.outputBuf == nil {
		return nil
	}
	return j.outputBuf.NewReader()
}

// Cancel requests cancellation. For a COMMAND job it sends a soft-cancel
// signal to the child; for TASK/OPERATION it sets the cooperative
// bg_op.cancelled flag. It returns whether this call made the transition.
func (j *Job) Cancel() bool {
	if j.kind != jobid.Command {
		return j.bgOp.Cancel()
	}

	j.statusMu.Lock()
	if j.cancelled || !j.running {
		wasNew := false
		j.statusMu.Unlock()
		return wasNew
	}
	j.statusMu.Unlock()

	if j.proc == nil {
		return false
	}
	if err := j.proc.SoftCancel(); err != nil {
		return false
	}

	j.statusMu.Lock()
	wasNew := !j.cancelled
	j.cancelled = true
	j.statusMu.Unlock()
	return wasNew
}

// Cancelled mirrors Cancel: COMMAND reads its own flag, others read
// bg_op.cancelled.
func (j *Job) Cancelled() bool {
	if j.kind != jobid.Command {
		return j.bgOp.Cancelled()
	}
	j.statusMu.Lock()
	defer j.statusMu.Unlock()
	return j.cancelled
}

// Terminate forcibly kills a running COMMAND job; it never waits for the
// child to actually exit. It returns ErrNotCommand for TASK/OPERATION jobs
// and is a no-op for a COMMAND job that is not running.
func (j *Job) Terminate() error {
	if j.kind != jobid.Command {
		return ErrNotCommand
	}
	if !j.IsRunning() || j.proc == nil {
		return nil
	}
	return j.proc.Terminate()
}

// Wait blocks until a COMMAND job exits. It first closes any input/output
// streams the job still owns, to unblock a child waiting on stdin EOF or
// backed up writing to a full stdout pipe, then performs its own blocking
// OS wait rather than depending on some other caller looping Check(): it
// is a self-contained call, matching spec.md's job_wait. Its wait races
// harmlessly against a concurrent foreground reap sweep (see
// spawn.Proc.Wait); whichever side the kernel hands the exit status to
// calls MarkFinished, and the other's ErrAlreadyReaped is swallowed.
func (j *Job) Wait() error {
	if j.kind != jobid.Command {
		return ErrNotCommand
	}
	if j.input != nil && j.ownsInput {
		_ = j.input.Close()
	}
	if j.output != nil && j.ownsOutput {
		_ = j.output.Close()
	}

	if j.proc != nil {
		if code, err := j.proc.Wait(); err == nil {
			j.MarkFinished(ExitCode(code))
		} else if !errors.Is(err, spawn.ErrAlreadyReaped) {
			slog.Error("job: wait failed", "id", j.id, "err", err)
		}
	}

	<-j.done
	return nil
}

// Close releases every platform resource the job holds. Only called by the
// registry once CanRemove() is true.
func (j *Job) Close() {
	if j.errStream != nil {
		_ = j.errStream.Close()
	}
	if j.input != nil && j.ownsInput {
		_ = j.input.Close()
	}
	if j.output != nil && j.ownsOutput {
		_ = j.output.Close()
	}
	if j.proc != nil {
		j.proc.Release()
	}
}
