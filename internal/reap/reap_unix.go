//go:build !windows

package reap

import (
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/clayne/bgjobs/internal/job"
)

// Sweep non-blockingly reaps every terminated child and maps its exit
// status onto the matching running target, by pid. Unknown pids (children
// the embedder never tracked, or already reaped) are ignored. It never
// blocks and must never be called reentrantly.
func Sweep(running []Target) {
	for {
		var status unix.WaitStatus

		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		switch {
		case err == unix.ECHILD:
			return
		case err != nil:
			slog.Error("reap: wait4 failed", "err", err)
			return
		case pid <= 0:
			return
		}

		code := status.ExitStatus()
		if status.Signaled() {
			code = 128 + int(status.Signal())
		}

		for _, t := range running {
			if t.Pid() == pid {
				t.MarkFinished(job.ExitCode(code))
				break
			}
		}
	}
}
