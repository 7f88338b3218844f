// Package jobid defines the typed identity used for every background job.
package jobid

import "go.jetify.com/typeid"

// Prefix is used to define the job typeid prefix.
type Prefix struct{}

// Prefix returns the job id prefix "job".
func (Prefix) Prefix() string { return "job" }

// ID is the job id type, a prefixed typeid so it prints and parses as
// "job_<suffix>" and is safe to log or show in a jobs menu.
type ID struct {
	typeid.TypeID[Prefix]
}

// New returns a new, random ID.
func New() (ID, error) {
	return typeid.New[ID]()
}

// Kind distinguishes the three flavors of tracked background work.
type Kind int

const (
	// Command is an external child process.
	Command Kind = iota
	// Task is an in-process worker for auxiliary, non-critical work.
	Task
	// Operation is an in-process worker for important work, shown on the
	// progress bar.
	Operation
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Command:
		return "COMMAND"
	case Task:
		return "TASK"
	case Operation:
		return "OPERATION"
	default:
		return "UNKNOWN"
	}
}
