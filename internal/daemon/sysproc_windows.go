//go:build windows

package daemon

import (
	"os/exec"
)

func detach(cmd *exec.Cmd) {}

// IsProcessRunning checks if a process with the given PID is running.
// On Windows FindProcess opens a handle and fails for dead processes.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := findProcess(pid)
	if err != nil {
		return false
	}
	process.Release()
	return true
}
