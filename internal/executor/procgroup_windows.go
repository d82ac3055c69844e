//go:build windows

package executor

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

const processGroupWaitDelay = 3 * time.Second

// setupProcessGroup starts the shell in its own process group and installs
// a Cancel hook that tears down the whole tree via taskkill, so a timed-out
// command cannot leave descendant processes running.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP

	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
		if err := kill.Run(); err != nil {
			// Fall back to killing the immediate child.
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = processGroupWaitDelay
}
