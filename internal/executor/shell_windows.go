//go:build windows

package executor

// defaultShell is the restricted Windows PowerShell invocation: no profile,
// no prompts, and the most restrictive execution policy so a validated
// command cannot itself launch nested scripts.
func defaultShell() Shell {
	return Shell{
		Path: "powershell.exe",
		Args: []string{
			"-NoProfile",
			"-NonInteractive",
			"-ExecutionPolicy", "Restricted",
			"-Command",
		},
	}
}
