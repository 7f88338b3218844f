package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clayne/bgjobs/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	m := Init(cfg, NopHooks{})
	t.Cleanup(m.Shutdown)
	return m
}

func driveCheck(t *testing.T, m *Manager, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.Check(true)
		if done() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// S1: true-in-background.
func TestRunExternalTrueLeavesNoJob(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	_, err := m.RunExternal("true", false, true, RequesterApp, false)
	require.NoError(t, err)

	driveCheck(t, m, 500*time.Millisecond, func() bool { return !m.HasActiveJobs(false) && m.reg.Len() == 0 })
	assert.Equal(t, 0, m.reg.JobCount())
}

// S2: captured stderr.
func TestRunExternalJobCapturesStderrAndExitCode(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	h, err := m.RunExternalJob(`sh -c "printf hello 1>&2; exit 3"`, 0, "t", "")
	require.NoError(t, err)
	defer h.Decref()

	driveCheck(t, m, 2*time.Second, func() bool { return !h.IsRunning() })

	assert.Equal(t, "hello", h.Errors())
	assert.Equal(t, 3, h.ExitCode())
	assert.True(t, h.WasKilled(), "preserved verbatim per the exit_code>=0 predicate")
}

// S3: cancel a sleeper.
func TestRunExternalJobCancelSleeper(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	h, err := m.RunExternalJob("sleep 60", JobBarVisible, "s", "")
	require.NoError(t, err)
	defer h.Decref()

	assert.True(t, h.Cancel())
	assert.False(t, h.Cancel())

	driveCheck(t, m, 2*time.Second, func() bool { return !h.IsRunning() })
}

// S4: terminate a stubborn sleeper.
func TestRunExternalJobTerminateSleeper(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	h, err := m.RunExternalJob("sleep 60", JobBarVisible, "s", "")
	require.NoError(t, err)
	defer h.Decref()

	require.NoError(t, h.Terminate())

	driveCheck(t, m, 2*time.Second, func() bool { return !h.IsRunning() })
}

// S5: task progress is non-decreasing.
func TestExecuteProgressNonDecreasing(t *testing.T) {
	t.Parallel()

	m := testManager(t)

	counter := func(o *Op, _ any) {
		for i := 0; i <= 10; i++ {
			o.SetDone(i)
		}
	}

	h, err := m.Execute("scan", "counting", 10, false, true, counter, nil)
	require.NoError(t, err)

	var seen []int
	driveCheck(t, m, time.Second, func() bool {
		seen = append(seen, h.Progress().Done)
		return !h.IsRunning()
	})

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "progress went backwards")
	}
	assert.Equal(t, 10, h.Progress().Done)
}

// S6: merged streams.
func TestRunExternalJobMergedStreams(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	h, err := m.RunExternalJob(`sh -c "echo out; echo err 1>&2"`, CaptureOut|MergeStreams, "t", "")
	require.NoError(t, err)
	defer h.Decref()

	driveCheck(t, m, 2*time.Second, func() bool { return !h.IsRunning() })
	require.NoError(t, h.WaitErrors())

	assert.Empty(t, h.Errors(), "merged streams create no separate error stream")

	out := h.Output()
	require.NotNil(t, out)
	defer out.Close()

	buf := make([]byte, 4096)
	n, _ := out.Read(buf)
	combined := string(buf[:n])
	assert.Contains(t, combined, "out")
	assert.Contains(t, combined, "err")
}

func TestCheckIsNonReentrant(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	reentered := false
	m.hooks = hooksFunc{
		promptError: func(string, string) bool {
			m.Check(true) // nested call must be a no-op
			reentered = true
			return false
		},
	}

	_, err := m.RunExternal(`sh -c "echo x 1>&2"`, false, false, RequesterApp, false)
	require.NoError(t, err)

	driveCheck(t, m, 2*time.Second, func() bool { return reentered })
}

func TestAndWaitForErrorsReturnsExitCode(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	code, err := m.AndWaitForErrors(context.Background(), "sh -c \"exit 7\"", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunAndCapturePipesOutput(t *testing.T) {
	t.Parallel()

	m := testManager(t)
	var out strings.Builder
	err := m.RunAndCapture(context.Background(), "echo hi", false, nil, &out, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "hi")
}

type hooksFunc struct {
	promptError func(string, string) bool
}

func (h hooksFunc) PromptError(title, body string) bool { return h.promptError(title, body) }
func (hooksFunc) JobBarAdd(*Handle)                      {}
func (hooksFunc) JobBarRemove(*Handle)                   {}
func (hooksFunc) JobBarChanged(*Handle)                  {}
func (hooksFunc) StatsRedrawLater()                      {}
func (hooksFunc) SetJobCount(int)                        {}
