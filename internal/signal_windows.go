//go:build windows

package internal

import (
	"os"
	"os/exec"
)

// configureProcessGroup is a no-op on Windows; there is no cheap equivalent
// of a POSIX process group, so a tainted worker's in-flight command is left
// to exit when the worker process itself is killed.
func configureProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the worker process directly. Windows has no signal
// to send first, so there is no graceful step to attempt.
func killProcessGroup(process *os.Process) {
	_ = process.Kill()
}
