// Package spawn implements the platform spawn layer, spec.md §4.1 (C1): it
// starts a child with the requested stdio wiring, isolates it from the
// controlling terminal unless asked to keep it in the foreground, and runs
// it through the configured shell.
package spawn

import (
	"errors"
	"fmt"
	"os"
)

// Flags control how a child is wired up and tracked, matching spec.md's
// KEEP_IN_FG/SUPPLY_INPUT/CAPTURE_OUT/MERGE_STREAMS/JOB_BAR_VISIBLE/
// MENU_VISIBLE.
type Flags uint8

const (
	// KeepInFG keeps the child attached to the controlling terminal or
	// session, needed for interactive children.
	KeepInFG Flags = 1 << iota
	// SupplyInput creates a pipe; the child's stdin is the read end and the
	// parent retains the writable end.
	SupplyInput
	// CaptureOut creates a pipe; the child's stdout is the write end and
	// the parent retains a readable stream.
	CaptureOut
	// MergeStreams, only meaningful alongside CaptureOut, duplicates the
	// child's stderr onto its stdout write end; no separate error pipe is
	// created, so no drain-worker entry is needed.
	MergeStreams
	// JobBarVisible places the job on the progress bar after launch.
	JobBarVisible
	// MenuVisible lists the job in the jobs menu.
	MenuVisible
)

// Has reports whether f contains flag.
func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Requester selects which shell flag introduces the command string.
type Requester int

const (
	// RequesterUser runs a command line typed or configured by the end
	// user, using the configured shell flag (ShellCmdFlag).
	RequesterUser Requester = iota
	// RequesterApp runs a command line built internally by the
	// application; it always uses the portable -c (or /C on Windows) flag.
	RequesterApp
)

// ShellConfig is the subset of embedder configuration the spawn layer
// consults.
type ShellConfig struct {
	Shell        string
	ShellCmdFlag string
}

// Proc is the live handle to a spawned child, abstracting over the
// platform-specific mechanics of soft-cancelling and hard-terminating it.
type Proc interface {
	// Pid returns the child's process id.
	Pid() int
	// SoftCancel sends a polite request to stop (SIGINT on unix, WM_CLOSE
	// on Windows).
	SoftCancel() error
	// Terminate forces the child, and anything grouped under it, to die
	// (SIGKILL on unix, TerminateJobObject on Windows).
	Terminate() error
	// Wait blocks until the child has exited and returns its exit code. It
	// may be called concurrently with the foreground reaper sweeping other
	// children (or even this one): whichever side the kernel hands the
	// exit status to wins, the other observes "no child" and returns
	// ErrAlreadyReaped, which callers must treat as a benign no-op.
	Wait() (int, error)
	// Release frees any OS resources (e.g. a Windows job object handle)
	// once the job has been reaped.
	Release()
}

// ErrAlreadyReaped is returned by Proc.Wait when the child's exit status was
// already consumed by the foreground reaper (internal/reap.Sweep) before
// Wait's own blocking wait could observe it.
var ErrAlreadyReaped = errors.New("spawn: child already reaped")

// Result is everything the caller of Spawn needs to track a freshly
// started child.
type Result struct {
	Proc      Proc
	ErrStream *os.File // nil unless the child has a separate, unmerged error pipe
	Input     *os.File // nil unless SupplyInput was requested
	Output    *os.File // nil unless CaptureOut was requested
}

// ErrBadPwd is returned when the requested working directory does not
// exist or is not traversable.
var ErrBadPwd = errors.New("spawn: working directory is not accessible")

// shellFlag picks the shell flag for requester, per spec.md §4.1: the
// application always uses the portable flag; the user's own commands use
// the configured one.
func shellFlag(cfg ShellConfig, requester Requester) string {
	if requester == RequesterApp {
		return appShellFlag
	}
	return cfg.ShellCmdFlag
}

// ShellArgv exposes the same argv construction Spawn uses, for the
// foreground-only helpers (and_wait_for_errors, run_and_capture) that spec.md
// places outside the core and which run a command via os/exec instead of
// the full, reaper-compatible spawn layer.
func ShellArgv(cfg ShellConfig, cmd string, requester Requester) []string {
	return buildShellArgv(cfg, cmd, requester, shellFlag(cfg, requester))
}

// Spawn starts cmd through the configured shell with the requested stdio
// wiring. On any failure after pipes are opened, every pipe end the caller
// would never see is closed before returning.
func Spawn(cfg ShellConfig, cmd string, pwd string, flags Flags, requester Requester) (*Result, error) {
	if pwd != "" {
		info, err := os.Stat(pwd)
		if err != nil || !info.IsDir() {
			return nil, ErrBadPwd
		}
	}

	argv := buildShellArgv(cfg, cmd, requester, shellFlag(cfg, requester))

	io, err := newStdio(flags)
	if err != nil {
		return nil, err
	}

	proc, err := startProcess(cfg.Shell, argv, pwd, flags, io)
	if err != nil {
		io.closeParentUnused() // nothing was handed off, close everything
		io.closeChildEnds()
		return nil, fmt.Errorf("spawn: %w", err)
	}

	// the child now owns its ends of the pipes
	io.closeChildEnds()

	return &Result{
		Proc:      proc,
		ErrStream: io.errRead,
		Input:     io.inWrite,
		Output:    io.outRead,
	}, nil
}
