// Package registry implements the job registry from spec.md §4.2 (C2): the
// collection of every live job, owned exclusively by the foreground
// goroutine. None of its methods take a lock; callers must only ever use a
// Registry from one goroutine, matching spec.md §5's guarantee that "the
// registry list is not consulted concurrently".
package registry

import (
	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
)

// Registry owns every tracked job for the lifetime of the process.
type Registry struct {
	order []*job.Job          // insertion order, newest first
	byID  map[jobid.ID]*job.Job
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byID: map[jobid.ID]*job.Job{}}
}

// Add inserts j at the head of the registry, mirroring spec.md's
// "inserted at the head of the registry".
func (r *Registry) Add(j *job.Job) {
	r.order = append([]*job.Job{j}, r.order...)
	r.byID[j.ID()] = j
}

// Lookup returns the job with the given id, if it is still registered.
func (r *Registry) Lookup(id jobid.ID) (*job.Job, bool) {
	j, ok := r.byID[id]
	return j, ok
}

// LookupPid returns the running COMMAND job with the given pid, if any.
func (r *Registry) LookupPid(pid int) (*job.Job, bool) {
	for _, j := range r.order {
		if j.Kind() == jobid.Command && j.IsRunning() && j.Pid() == pid {
			return j, true
		}
	}
	return nil, false
}

// ForEach calls fn for every registered job, in registry order. fn must not
// mutate the registry.
func (r *Registry) ForEach(fn func(*job.Job)) {
	for _, j := range r.order {
		fn(j)
	}
}

// Remove unlinks j from the registry. It is only legal to call this once
// j.CanRemove() is true; callers are expected to check that themselves
// (spec.md's removal precondition), this method does not re-check it.
func (r *Registry) Remove(j *job.Job) {
	delete(r.byID, j.ID())
	for i, cur := range r.order {
		if cur == j {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int { return len(r.order) }

// JobCount computes v:jobcount: the number of running jobs listed in the
// jobs menu.
func (r *Registry) JobCount() int {
	n := 0
	for _, j := range r.order {
		if j.IsRunning() && j.InMenu() {
			n++
		}
	}
	return n
}

// RunningCommandJobs returns every running COMMAND job, handed to the
// reaper as its targets by the foreground sweep.
func (r *Registry) RunningCommandJobs() []*job.Job {
	var out []*job.Job
	for _, j := range r.order {
		if j.Kind() == jobid.Command && j.IsRunning() {
			out = append(out, j)
		}
	}
	return out
}

// HasActiveJobs reports whether any TASK/OPERATION job is running
// (importantOnly=false), or any OPERATION job is running (importantOnly=
// true), matching spec.md's has_active_jobs.
func (r *Registry) HasActiveJobs(importantOnly bool) bool {
	for _, j := range r.order {
		if j.Kind() == jobid.Command || !j.IsRunning() {
			continue
		}
		if importantOnly && j.Kind() != jobid.Operation {
			continue
		}
		return true
	}
	return false
}
