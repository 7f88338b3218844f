package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clayne/bgjobs/internal/jobid"
)

func newTaskJob(t *testing.T) *Job {
	t.Helper()
	j, err := New(jobid.Task, "counting", true, false)
	require.NoError(t, err)
	return j
}

func TestJobMarkFinishedIsIdempotent(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	assert.True(t, j.IsRunning())

	j.MarkFinished(3)
	assert.False(t, j.IsRunning())
	assert.Equal(t, ExitCode(3), j.ExitCode())

	// a second call must not clobber the first exit code
	j.MarkFinished(9)
	assert.Equal(t, ExitCode(3), j.ExitCode())

	select {
	case <-j.Done():
	default:
		t.Fatal("done channel should already be closed")
	}
}

func TestJobWasKilledPredicate(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	assert.False(t, j.WasKilled(), "still running")

	j.MarkFinished(0)
	assert.True(t, j.WasKilled(), "preserved verbatim: !running && exit_code >= 0")
}

func TestJobStatusTransitions(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	j.NewOp(1, "", nil)
	assert.Equal(t, StatusRunning, j.Status())

	j.Cancel()
	j.MarkFinished(0)
	assert.Equal(t, StatusStopped, j.Status())
}

func TestJobStatusCompletedWithoutCancel(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	j.MarkFinished(0)
	assert.Equal(t, StatusCompleted, j.Status())
}

func TestJobIncrefDecrefAndCanRemove(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	j.Incref()
	j.MarkFinished(0)

	assert.False(t, j.CanRemove(), "use_count still held")

	j.Decref()
	assert.True(t, j.CanRemove())
}

func TestJobDecrefBelowZeroPanics(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	assert.Panics(t, func() { j.Decref() })
}

func TestJobErrorLogSwapNew(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	j.AppendError([]byte("hello "))
	j.AppendError([]byte("world"))

	assert.Equal(t, "hello world", j.Errors())

	first := j.SwapNewErrors()
	assert.Equal(t, "hello world", string(first))

	assert.Empty(t, j.SwapNewErrors(), "nothing new since last swap")
}

func TestJobCancelOpDelegatesForNonCommand(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	j.NewOp(10, "", nil)

	assert.True(t, j.Cancel())
	assert.True(t, j.Cancelled())
	assert.False(t, j.Cancel())
}

func TestJobWaitOnNonCommandIsError(t *testing.T) {
	t.Parallel()

	j := newTaskJob(t)
	assert.ErrorIs(t, j.Wait(), ErrNotCommand)
}
