package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/clayne/bgjobs/internal/job"
	"github.com/clayne/bgjobs/internal/jobid"
	"github.com/clayne/bgjobs/internal/spawn"
)

// Requester selects which shell flag introduces a command string: the
// user's own configured flag, or the application's portable -c or /C flag.
type Requester = spawn.Requester

const (
	RequesterUser = spawn.RequesterUser
	RequesterApp  = spawn.RequesterApp
)

// Flags control how a spawned child is wired up and tracked.
type Flags = spawn.Flags

const (
	KeepInFG      = spawn.KeepInFG
	SupplyInput   = spawn.SupplyInput
	CaptureOut    = spawn.CaptureOut
	MergeStreams  = spawn.MergeStreams
	JobBarVisible = spawn.JobBarVisible
	MenuVisible   = spawn.MenuVisible
)

// ErrBadPwd is returned when a requested working directory does not exist
// or is not traversable.
var ErrBadPwd = spawn.ErrBadPwd

func (m *Manager) spawnAndAttach(cmd, pwd string, flags spawn.Flags, requester spawn.Requester, withBgOp, inMenu bool, descr string) (*job.Job, error) {
	sc := spawn.ShellConfig{Shell: m.cfg.Shell, ShellCmdFlag: m.cfg.ShellCmdFlag}

	res, err := spawn.Spawn(sc, m.cfg.Resolve(cmd), pwd, flags, requester)
	if err != nil {
		return nil, err
	}

	j, err := job.New(jobid.Command, descr, withBgOp, inMenu)
	if err != nil {
		if res.Input != nil {
			_ = res.Input.Close()
		}
		if res.Output != nil {
			_ = res.Output.Close()
		}
		if res.ErrStream != nil {
			_ = res.ErrStream.Close()
		}
		res.Proc.Release()
		return nil, err
	}

	j.Attach(res)

	if res.ErrStream != nil {
		m.drain.Add(j)
	}

	return j, nil
}

// RunExternal fires and forgets an external command: no handle is
// returned, and skipErrors suppresses the stderr modal prompt entirely
// rather than just once. If wantInput is true the parent-side end of the
// child's stdin pipe is returned so the caller can feed it; the job
// releases ownership of that stream immediately (claimed), matching
// spec.md's "caller explicitly claims ownership in run_external".
func (m *Manager) RunExternal(cmd string, keepInFG bool, skipErrors bool, requester Requester, wantInput bool) (io.WriteCloser, error) {
	flags := MenuVisible
	if keepInFG {
		flags |= KeepInFG
	}
	if wantInput {
		flags |= SupplyInput
	}

	j, err := m.spawnAndAttach(cmd, "", flags, requester, false, true, cmd)
	if err != nil {
		return nil, err
	}
	j.SkipErrors = skipErrors

	m.reg.Add(j)
	m.updateJobCount()

	if wantInput {
		return j.ClaimInput(), nil
	}
	return nil, nil
}

// RunExternalJob starts an external command and returns a refcounted job
// handle, auto-setting skip_errors (the caller owns surfacing failures
// through the returned handle instead of the modal prompt), and optionally
// placing it on the job bar.
func (m *Manager) RunExternalJob(cmd string, flags Flags, descr, pwd string) (*Handle, error) {
	j, err := m.spawnAndAttach(cmd, pwd, flags|MenuVisible, RequesterUser, false, true, descr)
	if err != nil {
		return nil, err
	}
	j.SkipErrors = true
	j.Incref()

	m.reg.Add(j)

	h := &Handle{j: j, m: m}
	if flags.Has(JobBarVisible) {
		j.OnJobBar = true
		m.hooks.JobBarAdd(h)
	}
	m.updateJobCount()

	return h, nil
}

// Canceller lets a caller of AndWaitForErrors interrupt the blocking wait,
// matching spec.md's cancellation_t.
type Canceller interface {
	// Cancelled reports whether the caller wants the wait aborted.
	Cancelled() bool
}

// AndWaitForErrors is the foreground-only blocking helper: it runs cmd to
// completion outside the registry (no drain worker, no job bar, no
// check()), collecting stderr, and returns the exit code or the error that
// prevented one from being determined. If cancellation reports true before
// the command exits, the child is killed and the wait unblocks early.
//
// This bypasses internal/spawn deliberately: it has no need for the
// reaper-compatible os.StartProcess path since nothing else will ever wait
// on this pid, so the simpler os/exec.Cmd (which owns its own Wait)
// fits without the race the registry-tracked path has to avoid.
func (m *Manager) AndWaitForErrors(ctx context.Context, cmd string, cancellation Canceller) (int, error) {
	argv := spawn.ShellArgv(spawn.ShellConfig{Shell: m.cfg.Shell, ShellCmdFlag: m.cfg.ShellCmdFlag}, m.cfg.Resolve(cmd), RequesterApp)
	if len(argv) == 0 {
		return 0, fmt.Errorf("jobs: empty command")
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	c.Stderr = &stderr

	if err := c.Start(); err != nil {
		return 0, err
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	if cancellation == nil {
		err := <-done
		return exitCodeOf(c, err, stderr.String())
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return exitCodeOf(c, err, stderr.String())
		case <-ticker.C:
			if cancellation.Cancelled() {
				_ = c.Process.Kill()
				err := <-done
				return exitCodeOf(c, err, stderr.String())
			}
		}
	}
}

func exitCodeOf(c *exec.Cmd, waitErr error, stderr string) (int, error) {
	if waitErr == nil {
		return c.ProcessState.ExitCode(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if stderr != "" {
		return -1, fmt.Errorf("jobs: %w: %s", waitErr, stderr)
	}
	return -1, waitErr
}

// RunAndCapture is the other foreground-only blocking helper: it runs cmd,
// piping stdout/stderr straight to the caller-supplied writers, with no
// registry entry and therefore no job bar, no cancellation, and no drain
// worker involvement. in, if non-nil, is copied to the child's stdin.
func (m *Manager) RunAndCapture(ctx context.Context, cmd string, userSh bool, in io.Reader, out, errOut io.Writer) error {
	requester := RequesterApp
	if userSh {
		requester = RequesterUser
	}
	argv := spawn.ShellArgv(spawn.ShellConfig{Shell: m.cfg.Shell, ShellCmdFlag: m.cfg.ShellCmdFlag}, m.cfg.Resolve(cmd), requester)
	if len(argv) == 0 {
		return fmt.Errorf("jobs: empty command")
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = in
	c.Stdout = out
	c.Stderr = errOut

	return c.Run()
}
