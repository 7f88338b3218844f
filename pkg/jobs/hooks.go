// Package jobs is the embedder-facing surface of the background job
// subsystem: spec.md §6's "Embedder API". Everything the terminal UI,
// configuration, path utilities, and scripting engine would normally own is
// represented here only as the opaque hooks and config values spec.md says
// the core consumes (§1 "Out of scope").
package jobs

// Hooks are the collaborator-provided callbacks the core calls, matching
// spec.md §6 exactly: a modal error prompt, three job-bar widget
// notifications, a repaint hint, and the v:jobcount scripting variable.
type Hooks interface {
	// PromptError shows a modal with title/body and returns whether the
	// user chose to skip future error prompts for this job.
	PromptError(title, body string) (skipFuture bool)

	// JobBarAdd, JobBarRemove and JobBarChanged notify the progress-bar
	// widget about a job's lifecycle and progress changes.
	JobBarAdd(h *Handle)
	JobBarRemove(h *Handle)
	JobBarChanged(h *Handle)

	// StatsRedrawLater is a best-effort repaint hint.
	StatsRedrawLater()

	// SetJobCount publishes v:jobcount, recomputed at the end of every
	// sweep and only pushed to the hook when it changes.
	SetJobCount(n int)
}

// NopHooks is a Hooks implementation that does nothing, useful for tests
// and for embedders that don't yet have a UI wired up.
type NopHooks struct{}

func (NopHooks) PromptError(string, string) bool { return false }
func (NopHooks) JobBarAdd(*Handle)                {}
func (NopHooks) JobBarRemove(*Handle)             {}
func (NopHooks) JobBarChanged(*Handle)            {}
func (NopHooks) StatsRedrawLater()                {}
func (NopHooks) SetJobCount(int)                  {}
