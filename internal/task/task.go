// Package task implements the task/operation bootstrap from spec.md §4.4
// (C4): it launches an in-process worker actor that runs a caller-supplied
// function against a progress handle and reports completion.
package task

import (
	"log/slog"

	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
	"github.com/clayne/bgjobs/internal/op"
)

// Func is a worker function run by Execute. It receives the job's progress
// handle directly (spec.md §9's recommended replacement for process-wide
// actor-local "current job" state) rather than discovering it through
// ambient context.
type Func func(o *op.Op, args any)

// Execute creates a TASK (important=false) or OPERATION (important=true)
// job, and runs fn in its own goroutine against a fresh progress handle.
// The job is marked finished with exit code 0 once fn returns, or exit
// code 1 if fn panics. onChanged is the job-bar repaint hook forwarded to
// the progress handle (spec.md's job_bar_changed).
func Execute(descr, opDescr string, total int, important bool, fn Func, args any, onChanged func()) (*job.Job, error) {
	kind := jobid.Task
	if important {
		kind = jobid.Operation
	}

	j, err := job.New(kind, descr, true, true)
	if err != nil {
		return nil, err
	}

	o := j.NewOp(total, opDescr, onChanged)

	go run(j, o, fn, args)

	return j, nil
}

// run is the bootstrap trampoline: it invokes fn to completion and then
// marks the job finished. A panic in fn is treated the same way spec.md
// treats a failure to stash actor-local state: the job finishes with exit
// code 1 instead of propagating the panic to the rest of the program.
func run(j *job.Job, o *op.Op, fn Func, args any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("task: worker function panicked", "job", j.ID(), "panic", r)
			j.MarkFinished(1)
		}
	}()

	fn(o, args)
	j.MarkFinished(0)
}
