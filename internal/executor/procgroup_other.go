//go:build !windows && !darwin && !linux

package executor

import "os/exec"

// setupProcessGroup is a no-op on platforms without group-kill support;
// CommandContext's default Process.Kill applies.
func setupProcessGroup(cmd *exec.Cmd) {}
