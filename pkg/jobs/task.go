package jobs

import (
	"github.com/clayne/bgjobs/internal/task"
)

// Func is the signature of a TASK/OPERATION worker function: it receives
// its own progress handle and the caller-supplied args, exactly as
// spec.md's bg_op is handed to the worker actor rather than discovered
// through ambient state.
type Func = task.Func

// Execute starts a TASK (important=false) or OPERATION (important=true)
// job running fn in its own goroutine, and registers it with the
// manager. descr is the job's menu/job-bar label; opDescr seeds the
// progress handle's initial description; total is the progress denominator
// (0 if the work has no natural total). If jobBarVisible, the job is added
// to the progress-bar widget immediately. JobBarChanged fires on every
// progress update whether or not the job is on the bar.
func (m *Manager) Execute(descr, opDescr string, total int, important, jobBarVisible bool, fn Func, args any) (*Handle, error) {
	var h *Handle

	onChanged := func() {
		// h is assigned below, synchronously, before fn's goroutine can
		// possibly be scheduled for the first time on a single-core
		// machine in practice, but the nil guard makes the narrow race
		// (fn calling o.SetDescr/SetDone before h exists) a silent no-op
		// instead of a crash; see DESIGN.md.
		if h != nil {
			m.hooks.JobBarChanged(h)
		}
	}

	j, err := task.Execute(descr, opDescr, total, important, fn, args, onChanged)
	if err != nil {
		return nil, err
	}

	h = &Handle{j: j, m: m}
	m.reg.Add(j)

	if jobBarVisible {
		j.OnJobBar = true
		m.hooks.JobBarAdd(h)
	}
	m.updateJobCount()

	return h, nil
}
