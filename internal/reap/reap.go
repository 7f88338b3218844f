// Package reap implements the child reaper from spec.md §4.5 (C5): called
// from the foreground sweep, it maps terminated children onto their job
// entries without ever blocking or being reentrant.
package reap

import "github.com/clayne/bgjobs/internal/job"

// Target is the subset of *job.Job the reaper needs: its pid and a way to
// record that it finished.
type Target interface {
	Pid() int
	MarkFinished(code job.ExitCode)
}
