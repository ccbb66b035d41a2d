//go:build !windows
// +build !windows

package exec

import (
	hExec "os/exec"
	"syscall"
)

// setProcessGroup arranges for the command to run in its own process group so
// the whole group can be signalled on cancellation.
func setProcessGroup(cmd *hExec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcessGroup kills the command's process group. Killing only the
// shell would leave child processes holding the output pipes open.
func terminateProcessGroup(cmd *hExec.Cmd) {
	if cmd.Process == nil {
		return
	}
	syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
