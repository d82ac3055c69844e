//go:build darwin || linux

package executor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// processGroupWaitDelay bounds how long Run waits for pipe reads after the
// group has been killed.
const processGroupWaitDelay = 3 * time.Second

// setupProcessGroup gives the child its own session (Setsid) and installs
// a Cancel hook that kills the whole group on timeout. A plain Kill of the
// shell would leave grandchildren running and holding the output pipes
// open.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		pid := cmd.Process.Pid
		// kill(-1) targets every process of the user and kill(0) targets our
		// own group. Treat suspect PIDs as already gone instead.
		if pid <= 1 {
			return os.ErrProcessDone
		}
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			if errors.Is(err, syscall.ESRCH) {
				return os.ErrProcessDone
			}
			return err
		}
		return nil
	}
	cmd.WaitDelay = processGroupWaitDelay
}
