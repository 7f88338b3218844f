//go:build windows

package spawn

import (
	"os"

	"golang.org/x/sys/windows"
)

// windowsProc is the Windows Proc implementation: soft cancel posts
// WM_CLOSE to every top-level window owned by the process, hard terminate
// tears down the whole kernel job object the child (and anything it spawns)
// was placed into.
type windowsProc struct {
	proc *os.Process
	job  windows.Handle // zero if KeepInFG suppressed job-object grouping
}

func (p *windowsProc) Pid() int { return p.proc.Pid }

func (p *windowsProc) SoftCancel() error {
	return postCloseToProcess(uint32(p.proc.Pid))
}

func (p *windowsProc) Terminate() error {
	if p.job != 0 {
		return windows.TerminateJobObject(p.job, 1)
	}
	return p.proc.Kill()
}

// Wait blocks until the process exits and returns its exit code. It opens
// its own handle rather than reusing p.proc's, since WaitForSingleObject
// needs only SYNCHRONIZE rights and Windows handles don't have the
// consume-on-read hazard a unix wait4 does: calling this concurrently with
// reap_windows.go's GetExitCodeProcess polling of the same pid is safe.
func (p *windowsProc) Wait() (int, error) {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_INFORMATION, false, uint32(p.proc.Pid))
	if err != nil {
		return 0, ErrAlreadyReaped
	}
	defer func() { _ = windows.CloseHandle(h) }()

	if _, err := windows.WaitForSingleObject(h, windows.INFINITE); err != nil {
		return 0, err
	}

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return 0, err
	}

	return int(code), nil
}

func (p *windowsProc) Release() {
	if p.job != 0 {
		_ = windows.CloseHandle(p.job)
		p.job = 0
	}
	_ = p.proc.Release()
}

// startProcess starts the shell invocation described by argv. Unless
// KeepInFG is set, the child is assigned to a new kernel job object with
// JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE set, so Terminate (and the process
// dying without an explicit terminate) brings down the whole tree
// atomically.
func startProcess(path string, argv []string, pwd string, flags Flags, io *stdio) (Proc, error) {
	files := io.childFiles()

	attr := &os.ProcAttr{
		Dir:   pwd,
		Env:   os.Environ(),
		Files: files[:],
	}

	proc, err := os.StartProcess(path, argv, attr)
	if err != nil {
		return nil, err
	}

	wp := &windowsProc{proc: proc}

	if !flags.Has(KeepInFG) {
		job, jerr := newKillOnCloseJobObject()
		if jerr == nil {
			if h, oerr := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(proc.Pid)); oerr == nil {
				if aerr := windows.AssignProcessToJobObject(job, h); aerr == nil {
					wp.job = job
				}
				_ = windows.CloseHandle(h)
			}
		}
	}

	return wp, nil
}
