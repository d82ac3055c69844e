// Package policy loads and validates the security policy that gates every
// command execution. A policy is immutable once constructed; reload means
// building a whole new SecurityPolicy and swapping the reference.
package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/execbox/execbox-mcp/internal/errors"
)

// policyFile mirrors the on-disk JSON schema. Pointer fields distinguish
// "absent" from "zero" so a missing required field fails loudly instead of
// defaulting silently.
type policyFile struct {
	AllowedCommands    []string `json:"allowed_commands"`
	AllowedDirectories []string `json:"allowed_directories"`
	BlockedPatterns    []string `json:"blocked_patterns"`
	MaxCommandLength   *int     `json:"max_command_length"`
	TimeoutSeconds     *int     `json:"timeout_seconds"`
}

// BlockedPattern is a compiled blocklist entry. Patterns are compiled once
// at policy construction and matched case-insensitively against the whole
// raw command string.
type BlockedPattern struct {
	Source string
	Class  string
	re     *regexp.Regexp
}

// Match reports whether the command matches this pattern.
func (p BlockedPattern) Match(command string) bool {
	return p.re.MatchString(command)
}

// DirectoryPattern is a compiled allowed-directory entry: either an exact
// path or a root whose whole subtree is allowed (trailing "*" in the raw
// pattern).
type DirectoryPattern struct {
	Raw     string
	Root    string
	Subtree bool
}

// Matches reports whether the given normalized absolute path is covered by
// this pattern. Comparison is case-insensitive and subtree matches only
// extend on path-segment boundaries, so /srv/data2 never matches /srv/data*.
func (d DirectoryPattern) Matches(path string) bool {
	if strings.EqualFold(path, d.Root) {
		return true
	}
	if !d.Subtree {
		return false
	}
	if len(path) <= len(d.Root) {
		return false
	}
	if !strings.EqualFold(path[:len(d.Root)], d.Root) {
		return false
	}
	sep := path[len(d.Root)]
	return sep == '/' || sep == '\\'
}

// SecurityPolicy is the validated, immutable rule set loaded at startup.
type SecurityPolicy struct {
	allowedCommands map[string]struct{}
	commandList     []string
	directories     []DirectoryPattern
	patterns        []BlockedPattern
	maxCmdLength    int
	timeoutSeconds  int
}

// Load reads and validates a policy file. Any missing or malformed field
// fails construction; the caller must not serve requests on error.
func Load(path string) (*SecurityPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.PolicyError{Path: path, Err: fmt.Errorf("%w: %v", errors.ErrPolicyLoad, err)}
	}
	return Parse(data, path)
}

// Parse builds a SecurityPolicy from raw policy JSON. The path argument is
// used only for error reporting.
func Parse(data []byte, path string) (*SecurityPolicy, error) {
	var file policyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &errors.PolicyError{Path: path, Err: fmt.Errorf("%w: %v", errors.ErrPolicyLoad, err)}
	}

	fieldErr := func(field string, err error) error {
		return &errors.PolicyError{Path: path, Field: field, Err: err}
	}

	if file.AllowedCommands == nil {
		return nil, fieldErr("allowed_commands", fmt.Errorf("%w: required field missing", errors.ErrPolicyInvalid))
	}
	if file.AllowedDirectories == nil {
		return nil, fieldErr("allowed_directories", fmt.Errorf("%w: required field missing", errors.ErrPolicyInvalid))
	}
	if file.BlockedPatterns == nil {
		return nil, fieldErr("blocked_patterns", fmt.Errorf("%w: required field missing", errors.ErrPolicyInvalid))
	}
	if file.MaxCommandLength == nil {
		return nil, fieldErr("max_command_length", fmt.Errorf("%w: required field missing", errors.ErrPolicyInvalid))
	}
	if *file.MaxCommandLength <= 0 {
		return nil, fieldErr("max_command_length", fmt.Errorf("%w: must be a positive integer, got %d", errors.ErrPolicyInvalid, *file.MaxCommandLength))
	}
	if file.TimeoutSeconds == nil {
		return nil, fieldErr("timeout_seconds", fmt.Errorf("%w: required field missing", errors.ErrPolicyInvalid))
	}
	if *file.TimeoutSeconds <= 0 {
		return nil, fieldErr("timeout_seconds", fmt.Errorf("%w: must be a positive integer, got %d", errors.ErrPolicyInvalid, *file.TimeoutSeconds))
	}

	p := &SecurityPolicy{
		allowedCommands: make(map[string]struct{}, len(file.AllowedCommands)),
		commandList:     append([]string(nil), file.AllowedCommands...),
		maxCmdLength:    *file.MaxCommandLength,
		timeoutSeconds:  *file.TimeoutSeconds,
	}

	for _, cmd := range file.AllowedCommands {
		if strings.TrimSpace(cmd) == "" {
			return nil, fieldErr("allowed_commands", fmt.Errorf("%w: empty command name", errors.ErrPolicyInvalid))
		}
		p.allowedCommands[strings.ToLower(cmd)] = struct{}{}
	}

	for _, raw := range file.AllowedDirectories {
		dir, err := compileDirectoryPattern(raw)
		if err != nil {
			return nil, fieldErr("allowed_directories", fmt.Errorf("%w: %v", errors.ErrPolicyInvalid, err))
		}
		p.directories = append(p.directories, dir)
	}

	for _, src := range file.BlockedPatterns {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fieldErr("blocked_patterns", fmt.Errorf("%w: pattern %q: %v", errors.ErrPolicyInvalid, src, err))
		}
		p.patterns = append(p.patterns, BlockedPattern{
			Source: src,
			Class:  classifyPattern(src),
			re:     re,
		})
	}

	return p, nil
}

func compileDirectoryPattern(raw string) (DirectoryPattern, error) {
	if strings.TrimSpace(raw) == "" {
		return DirectoryPattern{}, fmt.Errorf("empty directory pattern")
	}
	subtree := strings.HasSuffix(raw, "*")
	root := raw
	if subtree {
		root = strings.TrimRight(root[:len(root)-1], `/\`)
	}
	if root == "" {
		return DirectoryPattern{}, fmt.Errorf("directory pattern %q has no root", raw)
	}
	root = filepath.Clean(root)
	return DirectoryPattern{Raw: raw, Root: root, Subtree: subtree}, nil
}

// classifyPattern maps a blocklist regex source to a human-readable class
// used in denial reasons.
func classifyPattern(src string) string {
	lower := strings.ToLower(src)
	switch {
	case strings.ContainsAny(src, ";&|`") && strings.Contains(src, "["):
		return "command separator"
	case strings.Contains(lower, ".ps1"), strings.Contains(lower, ".bat"), strings.Contains(lower, ".cmd"):
		return "script extension"
	case strings.Contains(lower, ".exe"):
		return "executable reference"
	case strings.Contains(lower, "invoke-"),
		strings.Contains(lower, "start-process"),
		strings.Contains(lower, "remove-item"),
		strings.HasPrefix(lower, "iex"),
		strings.HasPrefix(lower, "icm"),
		strings.HasPrefix(lower, "sps"),
		strings.HasPrefix(lower, "rm"),
		strings.HasPrefix(lower, "del"):
		return "dangerous cmdlet"
	default:
		return "blocked pattern"
	}
}

// IsCommandAllowed reports whether the leading token is whitelisted.
// Comparison is case-insensitive.
func (p *SecurityPolicy) IsCommandAllowed(token string) bool {
	_, ok := p.allowedCommands[strings.ToLower(token)]
	return ok
}

// AllowedCommands returns a snapshot of the whitelist in policy-file order.
func (p *SecurityPolicy) AllowedCommands() []string {
	return append([]string(nil), p.commandList...)
}

// AllowedDirectories returns a snapshot of the raw directory patterns.
func (p *SecurityPolicy) AllowedDirectories() []string {
	out := make([]string, len(p.directories))
	for i, d := range p.directories {
		out[i] = d.Raw
	}
	return out
}

// Directories returns the compiled directory patterns.
func (p *SecurityPolicy) Directories() []DirectoryPattern {
	return append([]DirectoryPattern(nil), p.directories...)
}

// BlockedPatterns returns the compiled blocklist in policy-file order.
func (p *SecurityPolicy) BlockedPatterns() []BlockedPattern {
	return append([]BlockedPattern(nil), p.patterns...)
}

// MaxCommandLength returns the command character ceiling.
func (p *SecurityPolicy) MaxCommandLength() int {
	return p.maxCmdLength
}

// TimeoutSeconds returns the execution wall-clock ceiling in seconds.
func (p *SecurityPolicy) TimeoutSeconds() int {
	return p.timeoutSeconds
}

// Timeout returns the execution ceiling as a duration.
func (p *SecurityPolicy) Timeout() time.Duration {
	return time.Duration(p.timeoutSeconds) * time.Second
}
