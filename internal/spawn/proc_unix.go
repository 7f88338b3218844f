//go:build !windows

package spawn

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// unixProc is the non-Windows Proc implementation: soft cancel sends
// SIGINT, hard terminate sends SIGKILL, both to the child's own process
// group so any descendants it has spawned die with it.
type unixProc struct {
	proc *os.Process
	pgid int
}

func (p *unixProc) Pid() int { return p.proc.Pid }

func (p *unixProc) SoftCancel() error {
	return syscall.Kill(-p.pgid, syscall.SIGINT)
}

func (p *unixProc) Terminate() error {
	return syscall.Kill(-p.pgid, syscall.SIGKILL)
}

// Wait blocks in wait4 on this child's own pid (never -1, so it never
// reaps a different job's child). It is safe to call concurrently with
// internal/reap.Sweep's process-wide wait4(-1, WNOHANG): the kernel
// atomically serializes delivery of a given pid's exit status to exactly
// one caller, so whichever side loses the race simply gets ECHILD.
func (p *unixProc) Wait() (int, error) {
	var status unix.WaitStatus

	_, err := unix.Wait4(p.proc.Pid, &status, 0, nil)
	if err != nil {
		if err == unix.ECHILD {
			return 0, ErrAlreadyReaped
		}
		return 0, err
	}

	code := status.ExitStatus()
	if status.Signaled() {
		code = 128 + int(status.Signal())
	}

	return code, nil
}

func (p *unixProc) Release() {
	_ = p.proc.Release()
}

// startProcess starts the shell invocation described by argv. Unless
// KeepInFG is set, the child becomes its own session leader (setsid) so
// that SoftCancel/Terminate, signaling the negative pgid, affect exactly
// the child tree and never the embedder's own process group.
func startProcess(path string, argv []string, pwd string, flags Flags, io *stdio) (Proc, error) {
	files := io.childFiles()

	attr := &os.ProcAttr{
		Dir:   pwd,
		Env:   os.Environ(),
		Files: files[:],
	}

	if !flags.Has(KeepInFG) {
		attr.Sys = &syscall.SysProcAttr{Setsid: true}
	}

	proc, err := os.StartProcess(path, argv, attr)
	if err != nil {
		return nil, err
	}

	pgid := proc.Pid
	if !flags.Has(KeepInFG) {
		// with Setsid the child is its own process group leader, so its
		// pgid equals its pid; read it back defensively in case the
		// platform ever disagrees.
		if g, gerr := syscall.Getpgid(proc.Pid); gerr == nil {
			pgid = g
		}
	}

	return &unixProc{proc: proc, pgid: pgid}, nil
}
