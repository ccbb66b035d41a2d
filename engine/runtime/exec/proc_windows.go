//go:build windows
// +build windows

package exec

import (
	hExec "os/exec"
	"strconv"
)

func setProcessGroup(cmd *hExec.Cmd) {
	// Windows has no process groups in the POSIX sense; taskkill handles the tree.
}

// terminateProcessGroup kills the command and its child process tree.
func terminateProcessGroup(cmd *hExec.Cmd) {
	if cmd.Process == nil {
		return
	}
	kill := hExec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	kill.Run()
}
