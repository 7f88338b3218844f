//go:build windows

package reap

import (
	"log/slog"

	"golang.org/x/sys/windows"

	"github.com/clayne/bgjobs/internal/job"
)

// stillActive is the sentinel GetExitCodeProcess returns while a process
// has not yet exited.
const stillActive = 259

// Sweep polls each running target's process directly, since Windows has no
// wait(-1, WNOHANG) equivalent: it maps onto spec.md's "on the other
// platform, update_status(job) polls process exit code directly".
func Sweep(running []Target) {
	for _, t := range running {
		pid := t.Pid()
		if pid == 0 {
			// matches spec.md's documented quirk: a pid of NONE never
			// passes through the OS-wait path. TASK/OPERATION jobs finish
			// via their own bootstrap instead, so Sweep is never handed one.
			continue
		}

		h, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
		if err != nil {
			continue
		}

		var code uint32
		err = windows.GetExitCodeProcess(h, &code)
		_ = windows.CloseHandle(h)
		if err != nil {
			slog.Error("reap: GetExitCodeProcess failed", "pid", pid, "err", err)
			continue
		}

		if code == stillActive {
			continue
		}

		t.MarkFinished(job.ExitCode(int(code)))
	}
}
