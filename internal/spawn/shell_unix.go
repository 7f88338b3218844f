//go:build !windows

package spawn

// appShellFlag is the portable flag the application itself always uses when
// it builds a command line internally, regardless of the user's configured
// shell.
const appShellFlag = "-c"

// buildShellArgv returns the argv used to run cmd through the configured
// shell: <shell> <flag> <cmd>.
func buildShellArgv(cfg ShellConfig, cmd string, _ Requester, flag string) []string {
	return []string{cfg.Shell, flag, cmd}
}
