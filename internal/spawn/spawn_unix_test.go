//go:build !windows

package spawn

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/sys/unix"
)

func testShellConfig() ShellConfig {
	return ShellConfig{Shell: "/bin/sh", ShellCmdFlag: "-c"}
}

func waitExit(t *testing.T, pid int) unix.WaitStatus {
	t.Helper()
	var status unix.WaitStatus
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		wpid, err := unix.Wait4(pid, &status, unix.WNOHANG, nil)
		require.NoError(t, err)
		if wpid == pid {
			return status
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("child did not exit before timeout")
	return status
}

func TestSpawnCapturesStdout(t *testing.T) {
	t.Parallel()

	res, err := Spawn(testShellConfig(), "echo hello", "", CaptureOut, RequesterApp)
	require.NoError(t, err)
	defer res.Proc.Release()

	out, err := io.ReadAll(res.Output)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	waitExit(t, res.Proc.Pid())
}

func TestSpawnMergeStreamsHasNoErrStream(t *testing.T) {
	t.Parallel()

	res, err := Spawn(testShellConfig(), "echo out; echo err 1>&2", "", CaptureOut|MergeStreams, RequesterApp)
	require.NoError(t, err)
	defer res.Proc.Release()

	assert.Nil(t, res.ErrStream)

	out, err := io.ReadAll(res.Output)
	require.NoError(t, err)
	assert.Contains(t, string(out), "out")
	assert.Contains(t, string(out), "err")

	waitExit(t, res.Proc.Pid())
}

func TestSpawnBadPwd(t *testing.T) {
	t.Parallel()

	_, err := Spawn(testShellConfig(), "true", "/no/such/directory", 0, RequesterApp)
	assert.ErrorIs(t, err, ErrBadPwd)
}

func TestSpawnTerminateKillsChild(t *testing.T) {
	t.Parallel()

	res, err := Spawn(testShellConfig(), "sleep 60", "", 0, RequesterApp)
	require.NoError(t, err)
	defer res.Proc.Release()

	require.NoError(t, res.Proc.Terminate())

	status := waitExit(t, res.Proc.Pid())
	assert.True(t, status.Signaled())
}
