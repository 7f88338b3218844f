package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
)

func newCommandJob(t *testing.T, inMenu bool) *job.Job {
	t.Helper()
	j, err := job.New(jobid.Command, "echo hi", false, inMenu)
	require.NoError(t, err)
	return j
}

func TestRegistryAddLookupRemove(t *testing.T) {
	t.Parallel()

	r := New()
	j := newCommandJob(t, true)

	r.Add(j)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Lookup(j.ID())
	require.True(t, ok)
	assert.Same(t, j, got)

	r.Remove(j)
	assert.Equal(t, 0, r.Len())
	_, ok = r.Lookup(j.ID())
	assert.False(t, ok)
}

func TestRegistryAddOrderIsNewestFirst(t *testing.T) {
	t.Parallel()

	r := New()
	first := newCommandJob(t, true)
	second := newCommandJob(t, true)

	r.Add(first)
	r.Add(second)

	var order []*job.Job
	r.ForEach(func(j *job.Job) { order = append(order, j) })

	require.Len(t, order, 2)
	assert.Same(t, second, order[0])
	assert.Same(t, first, order[1])
}

func TestRegistryJobCountOnlyCountsRunningInMenu(t *testing.T) {
	t.Parallel()

	r := New()
	running := newCommandJob(t, true)
	notInMenu := newCommandJob(t, false)
	finished := newCommandJob(t, true)
	finished.MarkFinished(0)

	r.Add(running)
	r.Add(notInMenu)
	r.Add(finished)

	assert.Equal(t, 1, r.JobCount())
}

func TestRegistryHasActiveJobsImportantOnly(t *testing.T) {
	t.Parallel()

	r := New()
	task, err := job.New(jobid.Task, "t", true, false)
	require.NoError(t, err)
	op, err := job.New(jobid.Operation, "o", true, false)
	require.NoError(t, err)

	r.Add(task)

	assert.True(t, r.HasActiveJobs(false))
	assert.False(t, r.HasActiveJobs(true))

	r.Add(op)
	assert.True(t, r.HasActiveJobs(true))
}
