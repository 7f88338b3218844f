// Command bgjobsdemo is a terminal harness for the background job
// subsystem: it exercises run_external, run_external_job, execute, and the
// two foreground blocking helpers from a cobra CLI instead of a real
// editor UI, implementing the Hooks interface by printing to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/clayne/bgjobs/internal/config"
	"github.com/clayne/bgjobs/pkg/jobs"
)

func main() {
	if err := run(); err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()

	root := &cobra.Command{
		Use:           "bgjobsdemo",
		Short:         "Drives the background job subsystem from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg.Flags(root)

	mgr := jobs.Init(cfg, newConsoleHooks())

	root.AddCommand(
		runCmd(mgr),
		runJobCmd(mgr),
		execCmd(mgr),
		waitErrorsCmd(mgr),
		captureCmd(mgr),
		menuCmd(mgr),
	)

	ctx := context.Background()
	_, err := root.ExecuteContextC(ctx)
	mgr.Shutdown()
	return err
}

func exitCode(err error) (int, bool) {
	var eerr *exec.ExitError
	if errors.As(err, &eerr) {
		return eerr.ExitCode(), true
	}
	return 0, false
}

// consoleHooks implements jobs.Hooks by printing everything to stdout, the
// demo's stand-in for a modal prompt, a job-bar widget, and the v:jobcount
// scripting variable.
type consoleHooks struct{}

func newConsoleHooks() consoleHooks { return consoleHooks{} }

func (consoleHooks) PromptError(title, body string) bool {
	fmt.Printf("[error] %s:\n%s\n", title, body)
	return false
}

func (consoleHooks) JobBarAdd(h *jobs.Handle) {
	fmt.Printf("[job-bar] + %s (%s)\n", h.ID(), h.Cmd())
}

func (consoleHooks) JobBarRemove(h *jobs.Handle) {
	fmt.Printf("[job-bar] - %s\n", h.ID())
}

func (consoleHooks) JobBarChanged(h *jobs.Handle) {
	p := h.Progress()
	fmt.Printf("[job-bar] %s: %s %d/%d\n", h.ID(), p.Descr, p.Done, p.Total)
}

func (consoleHooks) StatsRedrawLater() {}

func (consoleHooks) SetJobCount(n int) {
	fmt.Printf("[v:jobcount] %d\n", n)
}

// pumpCheck drives Check in a tight loop bounded by timeout, stopping
// early once stop reports true. It is the demo's stand-in for the
// editor's main event loop periodically calling check().
func pumpCheck(mgr *jobs.Manager, timeout time.Duration, stop func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		mgr.Check(true)
		if stop == nil || stop() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func runCmd(mgr *jobs.Manager) *cobra.Command {
	var keepInFG, skipErrors bool
	cmd := &cobra.Command{
		Use:   "run <cmd>",
		Short: "run_external: fire-and-forget an external command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := mgr.RunExternal(args[0], keepInFG, skipErrors, jobs.RequesterUser, false); err != nil {
				return err
			}
			pumpCheck(mgr, 2*time.Second, func() bool { return !mgr.HasActiveJobs(false) })
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepInFG, "keep-in-fg", false, "keep the child attached to the terminal")
	cmd.Flags().BoolVar(&skipErrors, "skip-errors", false, "suppress the stderr modal prompt")
	return cmd
}

func runJobCmd(mgr *jobs.Manager) *cobra.Command {
	var jobBar, captureOut, mergeStreams bool
	var pwd, descr string
	cmd := &cobra.Command{
		Use:   "run-job <cmd>",
		Short: "run_external_job: start a tracked job and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags jobs.Flags
			if jobBar {
				flags |= jobs.JobBarVisible
			}
			if captureOut {
				flags |= jobs.CaptureOut
			}
			if mergeStreams {
				flags |= jobs.MergeStreams
			}

			h, err := mgr.RunExternalJob(args[0], flags, descr, pwd)
			if err != nil {
				return err
			}
			defer h.Decref()

			pumpCheck(mgr, 10*time.Second, func() bool { return !h.IsRunning() })

			fmt.Printf("exit=%d was_killed=%v errors=%q\n", h.ExitCode(), h.WasKilled(), h.Errors())
			if out := h.Output(); out != nil {
				var buf [4096]byte
				n, _ := out.Read(buf[:])
				fmt.Printf("output=%q\n", string(buf[:n]))
				out.Close()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jobBar, "job-bar", false, "show on the progress bar")
	cmd.Flags().BoolVar(&captureOut, "capture-out", false, "capture stdout")
	cmd.Flags().BoolVar(&mergeStreams, "merge-streams", false, "merge stderr onto stdout")
	cmd.Flags().StringVar(&pwd, "pwd", "", "working directory")
	cmd.Flags().StringVar(&descr, "descr", "", "job description")
	return cmd
}

func execCmd(mgr *jobs.Manager) *cobra.Command {
	var total int
	var important bool
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "execute: run a counting demo task/operation and watch its progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			counter := func(o *jobs.Op, _ any) {
				for i := 0; i <= total; i++ {
					if o.Cancelled() {
						return
					}
					o.SetDone(i)
					time.Sleep(50 * time.Millisecond)
				}
			}

			h, err := mgr.Execute("scan", "counting", total, important, true, counter, nil)
			if err != nil {
				return err
			}

			pumpCheck(mgr, 5*time.Second, func() bool { return !h.IsRunning() })
			return nil
		},
	}
	cmd.Flags().IntVar(&total, "total", 10, "progress denominator")
	cmd.Flags().BoolVar(&important, "important", false, "run as an OPERATION instead of a TASK")
	return cmd
}

func waitErrorsCmd(mgr *jobs.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "wait-errors <cmd>",
		Short: "run_external_job followed by wait/wait_errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := mgr.RunExternalJob(args[0], 0, args[0], "")
			if err != nil {
				return err
			}
			defer h.Decref()

			if err := h.Wait(); err != nil {
				return err
			}
			if err := h.WaitErrors(); err != nil {
				fmt.Printf("wait_errors: %v\n", err)
			}
			mgr.Check(false)
			fmt.Printf("exit=%d errors=%q\n", h.ExitCode(), h.Errors())
			return nil
		},
	}
}

func captureCmd(mgr *jobs.Manager) *cobra.Command {
	var userSh bool
	cmd := &cobra.Command{
		Use:   "capture <cmd>",
		Short: "run_and_capture: blocking helper piping stdout/stderr straight to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.RunAndCapture(cmd.Context(), args[0], userSh, nil, os.Stdout, os.Stderr)
		},
	}
	cmd.Flags().BoolVar(&userSh, "user-sh", false, "use the configured user shell flag instead of the application's portable one")
	return cmd
}

func menuCmd(mgr *jobs.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "list every job currently in the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr.Check(false)
			for _, h := range mgr.List() {
				fmt.Printf("%s\t%s\t%s\t%s\n", h.ID(), h.Kind(), h.Status(), h.Cmd())
			}
			return nil
		},
	}
}
