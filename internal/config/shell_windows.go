//go:build windows

package config

func defaultShell() string     { return "cmd" }
func defaultShellFlag() string { return "/C" }
