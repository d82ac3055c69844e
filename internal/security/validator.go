// Package security holds the pure decision surface of the gatekeeper:
// command validation against the loaded policy and working-directory
// normalization. Nothing in this package spawns a process.
package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/execbox/execbox-mcp/internal/policy"
)

// ValidationResult is the outcome of validating a single command request.
// Every outcome is expressed as a value; Validate never returns an error.
type ValidationResult struct {
	IsAllowed bool   `json:"is_allowed"`
	Reason    string `json:"reason"`
	Command   string `json:"command"`
}

// Validator decides whether a command is permitted under the policy.
// It is stateless apart from the read-only policy reference, so a single
// Validator is safe for concurrent use.
type Validator struct {
	policy *policy.SecurityPolicy
}

// NewValidator creates a validator bound to the given policy.
func NewValidator(p *policy.SecurityPolicy) *Validator {
	return &Validator{policy: p}
}

// Validate runs the ordered checks: emptiness/length, blocked patterns,
// whitelist, then directory. The first failing check wins and later checks
// are not evaluated. The blocklist is scanned against the entire raw
// command string and deliberately outranks the whitelist, so a dangerous
// pattern riding alongside a whitelisted token is still rejected.
func (v *Validator) Validate(command, workingDirectory string) ValidationResult {
	deny := func(reason string) ValidationResult {
		return ValidationResult{IsAllowed: false, Reason: reason, Command: command}
	}

	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return deny("command is empty")
	}
	if n := utf8.RuneCountInString(command); n > v.policy.MaxCommandLength() {
		return deny(fmt.Sprintf("command exceeds maximum length of %d characters (got %d)",
			v.policy.MaxCommandLength(), n))
	}

	for _, pat := range v.policy.BlockedPatterns() {
		if pat.Match(command) {
			return deny(fmt.Sprintf("command contains blocked pattern (%s): %s", pat.Class, pat.Source))
		}
	}

	token := strings.Fields(trimmed)[0]
	if !v.policy.IsCommandAllowed(token) {
		return deny(fmt.Sprintf("command %q is not in the allowed commands list", token))
	}

	if workingDirectory != "" {
		normalized, err := NormalizePath(workingDirectory)
		if err != nil {
			return deny(fmt.Sprintf("cannot resolve working directory %q: %v", workingDirectory, err))
		}
		if !IsDirectoryAllowed(normalized, v.policy.Directories()) {
			return deny(fmt.Sprintf("working directory %q is not within an allowed directory", normalized))
		}
	}

	return ValidationResult{IsAllowed: true, Reason: "command is allowed", Command: command}
}
