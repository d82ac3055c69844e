package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

// defaultPolicy is the starter rule set written by the init command. It
// mirrors a conservative read-mostly PowerShell profile: inspection
// cmdlets only, no separators, no script files, no process spawning.
var defaultPolicy = policyFile{
	AllowedCommands: []string{
		"Get-ChildItem", "Get-Item", "Get-Content", "Get-Location",
		"Set-Location", "Test-Path", "Get-Process", "Get-Service",
		"Get-Date", "Get-Host", "Write-Output", "Write-Host",
		"Select-Object", "Where-Object", "Sort-Object", "Measure-Object",
	},
	AllowedDirectories: []string{
		`C:\Users\Public*`,
		`C:\temp*`,
		`C:\Windows\System32`,
	},
	BlockedPatterns: []string{
		"[;&|`]",
		`Invoke-Expression`,
		`Invoke-Command`,
		`Invoke-WebRequest`,
		`Invoke-RestMethod`,
		`iex\s`,
		`icm\s`,
		`Start-Process`,
		`sps\s`,
		`Remove-Item`,
		`rm\s`,
		`del\s`,
		`rmdir\s`,
		`\.ps1`,
		`\.bat`,
		`\.cmd`,
		`\.exe`,
	},
	MaxCommandLength: intPtr(200),
	TimeoutSeconds:   intPtr(30),
}

func intPtr(v int) *int { return &v }

// Default returns the built-in starter policy, already compiled and
// validated.
func Default() *SecurityPolicy {
	data, err := json.Marshal(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("marshal default policy: %v", err))
	}
	p, err := Parse(data, "<default>")
	if err != nil {
		panic(fmt.Sprintf("default policy does not validate: %v", err))
	}
	return p
}

// WriteDefault writes the starter policy file to path. It refuses to
// overwrite an existing file so a tuned policy cannot be clobbered.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("policy file already exists: %s", path)
	}
	data, err := json.MarshalIndent(defaultPolicy, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default policy: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
