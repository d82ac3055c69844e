//go:build !windows

package executor

// defaultShell uses PowerShell Core where available. The flag set matches
// the Windows invocation; pwsh accepts -ExecutionPolicy on every platform
// even where the policy itself is not enforced.
func defaultShell() Shell {
	return Shell{
		Path: "pwsh",
		Args: []string{
			"-NoProfile",
			"-NonInteractive",
			"-ExecutionPolicy", "Restricted",
			"-Command",
		},
	}
}
