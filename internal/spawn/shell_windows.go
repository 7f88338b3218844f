//go:build windows

package spawn

import "strings"

// appShellFlag is the portable flag the application itself always uses when
// it builds a command line internally, regardless of the user's configured
// shell.
const appShellFlag = "/C"

// buildShellArgv returns the argv used to run cmd through the configured
// shell. Per spec.md §4.1, when the requester is the user and the shell is
// cmd.exe, the command line is rewritten by quoteForCmd so that characters
// cmd.exe treats specially inside /C don't get reinterpreted.
func buildShellArgv(cfg ShellConfig, cmd string, requester Requester, flag string) []string {
	if requester == RequesterUser && isCmdShell(cfg.Shell) {
		cmd = quoteForCmd(cmd)
	}
	return []string{cfg.Shell, flag, cmd}
}

func isCmdShell(shell string) bool {
	s := strings.ToLower(shell)
	return s == "cmd" || strings.HasSuffix(s, "\\cmd.exe") || s == "cmd.exe"
}

// quoteForCmd wraps cmd in a pair of quotes and escapes the characters
// cmd.exe's parser treats as special when they appear outside of quotes, so
// that /C "<cmd>" is interpreted as a single command line rather than being
// split on cmd.exe's own metacharacters.
func quoteForCmd(cmd string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range cmd {
		switch r {
		case '^', '&', '|', '<', '>', '%':
			b.WriteByte('^')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
