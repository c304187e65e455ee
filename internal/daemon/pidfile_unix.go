//go:build unix

package daemon

import (
	"syscall"
)

// Signal 0 performs the permission and existence checks without delivering
// anything.
func processExists(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
