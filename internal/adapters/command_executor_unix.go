//go:build unix

package adapters

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcessTree starts the command in its own process group and kills
// the whole group when the context ends.
func killProcessTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
}
