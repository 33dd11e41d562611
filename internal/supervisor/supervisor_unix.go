//go:build !windows

package supervisor

import "syscall"

// detachedSysProcAttr puts the worker in its own session so it survives the
// terminal and signals sent to the CLI.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
