// Package config holds the embedder-supplied configuration values the job
// subsystem consults but never owns: the shell used to run commands, the
// flag that introduces a command string to that shell, and the fast-run
// resolution table used by the demo CLI in place of the real UI's binary
// cache.
package config

import "github.com/spf13/cobra"

// Config is the small slice of application configuration the job subsystem
// reads. The rest of the embedder's configuration (paths, logging,
// scripting variables) is out of scope, per spec.
type Config struct {
	// Shell is the user's configured shell, e.g. "/bin/bash" or "cmd".
	Shell string

	// ShellCmdFlag is the flag passed before a command string when the
	// shell is invoked on behalf of the user (as opposed to the
	// application itself, which always uses the portable -c or /C flag).
	ShellCmdFlag string

	// FastRun is a lookup table from a short alias to a fully expanded
	// command line, mirroring the scripting engine's fast-run expansion.
	FastRun map[string]string
}

// Default returns a Config with reasonable defaults for the host shell.
func Default() *Config {
	return &Config{
		Shell:        defaultShell(),
		ShellCmdFlag: defaultShellFlag(),
		FastRun:      map[string]string{},
	}
}

// Flags registers the subset of Config that makes sense as CLI flags on the
// demo command.
func (c *Config) Flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Shell, "shell", c.Shell, "shell used to run external commands")
	cmd.Flags().StringVar(&c.ShellCmdFlag, "shell-cmd-flag", c.ShellCmdFlag, "flag that introduces a command string to the configured shell")
}

// Resolve expands a fast-run alias, if cmd matches one, otherwise returns
// cmd unchanged.
func (c *Config) Resolve(cmd string) string {
	if c == nil || c.FastRun == nil {
		return cmd
	}
	if expanded, ok := c.FastRun[cmd]; ok {
		return expanded
	}
	return cmd
}
