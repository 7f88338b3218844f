package jobs

import (
	"sync/atomic"

	"github.com/clayne/bgjobs/internal/config"
	"github.com/clayne/bgjobs/internal/drain"
	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/reap"
	"github.com/clayne/bgjobs/internal/registry"
)

// Manager is the embedder's entry point into the job subsystem: it owns
// the registry, the error-drain worker, and the non-reentrant foreground
// sweep (spec.md §4.6, C6).
type Manager struct {
	cfg   *config.Config
	hooks Hooks

	reg   *registry.Registry
	drain *drain.Worker

	checking     atomic.Bool
	lastJobCount int
}

// Init creates the wake event, the drain worker, and starts it, matching
// spec.md's init(): "Creates wake event, actor-local storage key, starts
// drain worker." There is no actor-local storage key to create in this
// port (spec.md §9 recommends passing the job explicitly instead), so this
// only has to do the two things that actually matter.
func Init(cfg *config.Config, hooks Hooks) *Manager {
	if hooks == nil {
		hooks = NopHooks{}
	}
	m := &Manager{
		cfg:   cfg,
		hooks: hooks,
		reg:   registry.New(),
		drain: drain.New(),
	}
	m.drain.Start()
	return m
}

// Check is the foreground sweep from spec.md §4.6. A nested call made
// while one is already in progress (e.g. from inside PromptError) is a
// no-op, matching the source's non-reentrant guard.
func (m *Manager) Check(showErrors bool) {
	if !m.checking.CompareAndSwap(false, true) {
		return
	}
	defer m.checking.Store(false)

	m.reapChildren()
	m.wakeDrainIfErroring()
	m.sweepRegistry(showErrors)
	m.updateJobCount()
}

func (m *Manager) reapChildren() {
	running := m.reg.RunningCommandJobs()
	if len(running) == 0 {
		return
	}
	targets := make([]reap.Target, len(running))
	for i, j := range running {
		targets[i] = j
	}
	reap.Sweep(targets)
}

func (m *Manager) wakeDrainIfErroring() {
	any := false
	m.reg.ForEach(func(j *job.Job) {
		if j.Erroring() {
			any = true
		}
	})
	if any {
		m.drain.Wake()
	}
}

func (m *Manager) sweepRegistry(showErrors bool) {
	var toRemove []*job.Job

	m.reg.ForEach(func(j *job.Job) {
		if showErrors {
			m.drainErrorsToPrompt(j)
		}

		// onStopped is idempotent (OnJobBar/ExitCB are both cleared after
		// their first firing), so it is safe, and simplest, to call it on
		// every sweep rather than tracking a running->stopped edge here.
		if !j.IsRunning() {
			m.onStopped(j)
		}

		if j.CanRemove() {
			j.Close()
			toRemove = append(toRemove, j)
		}
	})

	for _, j := range toRemove {
		m.reg.Remove(j)
	}
}

// drainErrorsToPrompt repeatedly swaps out new_errors and, unless the job
// has opted out, shows them through PromptError, matching spec.md's "repeat
// while new error buffers are produced during the prompt".
func (m *Manager) drainErrorsToPrompt(j *job.Job) {
	for {
		newErrors := j.SwapNewErrors()
		if len(newErrors) == 0 {
			return
		}
		if j.SkipErrors {
			continue
		}
		if m.hooks.PromptError(j.Cmd(), string(newErrors)) {
			j.SkipErrors = true
		}
	}
}

// onStopped runs the one-time transition work spec.md assigns to the sweep
// step that first observes running go false: removing the job from the job
// bar and firing its exit callback exactly once.
func (m *Manager) onStopped(j *job.Job) {
	if j.OnJobBar {
		j.OnJobBar = false
		m.hooks.JobBarRemove(&Handle{j: j, m: m})
	}
	if j.ExitCB != nil {
		cb := j.ExitCB
		j.ExitCB = nil
		cb(j)
	}
}

func (m *Manager) updateJobCount() {
	n := m.reg.JobCount()
	if n != m.lastJobCount {
		m.lastJobCount = n
		m.hooks.SetJobCount(n)
		m.hooks.StatsRedrawLater()
	}
}

// List returns a handle for every job currently in the registry, in
// registry order (newest first), for rendering a jobs menu.
func (m *Manager) List() []*Handle {
	var out []*Handle
	m.reg.ForEach(func(j *job.Job) {
		out = append(out, &Handle{j: j, m: m})
	})
	return out
}

// HasActiveJobs reports whether any TASK/OPERATION job is running
// (importantOnly=false) or any OPERATION job is running (importantOnly=
// true).
func (m *Manager) HasActiveJobs(importantOnly bool) bool {
	return m.reg.HasActiveJobs(importantOnly)
}

// Shutdown stops the error-drain worker. It does not touch any still-live
// jobs; callers are expected to have already driven them to completion.
func (m *Manager) Shutdown() {
	m.drain.Stop()
}
