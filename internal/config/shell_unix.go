//go:build !windows

package config

func defaultShell() string     { return "/bin/sh" }
func defaultShellFlag() string { return "-c" }
