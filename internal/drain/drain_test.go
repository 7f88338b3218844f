package drain

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
	"github.com/clayne/bgjobs/internal/spawn"
)

func newCommandJobWithErrStream(t *testing.T) (*job.Job, *os.File) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	j, err := job.New(jobid.Command, "t", false, true)
	require.NoError(t, err)
	j.Attach(&spawn.Result{ErrStream: r})

	return j, w
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDrainWorkerAppendsErrorBytes(t *testing.T) {
	t.Parallel()

	w := New()
	w.Start()
	defer w.Stop()

	j, wr := newCommandJobWithErrStream(t)
	w.Add(j)

	_, err := wr.Write([]byte("hello"))
	require.NoError(t, err)

	waitForCondition(t, time.Second, func() bool {
		return j.Errors() == "hello"
	})
}

func TestDrainWorkerReleasesOnEOF(t *testing.T) {
	t.Parallel()

	w := New()
	w.Start()
	defer w.Stop()

	j, wr := newCommandJobWithErrStream(t)
	require.Equal(t, 1, j.UseCount())

	w.Add(j)
	require.NoError(t, wr.Close())

	waitForCondition(t, time.Second, func() bool {
		return !j.Erroring()
	})
	assert.Equal(t, 0, j.UseCount())
}
