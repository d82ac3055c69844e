// Package tools is the facade the protocol layer calls. It gates every
// execution through the validator and delegates allowed commands to the
// executor; it holds no policy logic of its own.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/execbox/execbox-mcp/internal/audit"
	"github.com/execbox/execbox-mcp/internal/executor"
	"github.com/execbox/execbox-mcp/internal/policy"
	"github.com/execbox/execbox-mcp/internal/security"
)

// Runner executes an already-validated command.
type Runner interface {
	Execute(ctx context.Context, command, workingDirectory string, timeout time.Duration) executor.ExecutionResult
}

// SecurityConfigSummary is the non-sensitive view of the loaded policy:
// counts and limits, never the pattern sources themselves.
type SecurityConfigSummary struct {
	AllowedCommandsCount    int `json:"allowed_commands_count"`
	AllowedDirectoriesCount int `json:"allowed_directories_count"`
	BlockedPatternsCount    int `json:"blocked_patterns_count"`
	MaxCommandLength        int `json:"max_command_length"`
	TimeoutSeconds          int `json:"timeout_seconds"`
}

// Surface exposes the five gatekeeper operations. It holds a read-only
// policy reference; no operation mutates it.
type Surface struct {
	policy    *policy.SecurityPolicy
	validator *security.Validator
	runner    Runner
	store     audit.Store
	logger    *slog.Logger
}

// New builds the facade.
func New(p *policy.SecurityPolicy, runner Runner, store audit.Store, logger *slog.Logger) *Surface {
	if store == nil {
		store = audit.Nop{}
	}
	return &Surface{
		policy:    p,
		validator: security.NewValidator(p),
		runner:    runner,
		store:     store,
		logger:    logger,
	}
}

// ExecutePowerShell validates the command and, only if allowed, runs it
// under the policy timeout. A denied command short-circuits without
// spawning any process; the denial reason travels back in stderr.
func (s *Surface) ExecutePowerShell(ctx context.Context, command, workingDirectory string) executor.ExecutionResult {
	validation := s.validator.Validate(command, workingDirectory)
	if !validation.IsAllowed {
		s.logger.Warn("command denied", "command", command, "reason", validation.Reason)
		s.record(audit.Event{
			Tool:    "execute_powershell",
			Command: command,
			Allowed: false,
			Detail:  validation.Reason,
		})
		return executor.ExecutionResult{
			Success:          false,
			ReturnCode:       nil,
			Stderr:           validation.Reason,
			Command:          command,
			WorkingDirectory: workingDirectory,
		}
	}

	result := s.runner.Execute(ctx, command, workingDirectory, s.policy.Timeout())

	detail := result.Stderr
	if result.Success {
		detail = ""
	}
	s.record(audit.Event{
		Tool:    "execute_powershell",
		Command: command,
		Allowed: true,
		Success: result.Success,
		Detail:  detail,
	})
	if result.Success {
		s.logger.Info("command executed", "command", command)
	} else {
		s.logger.Warn("command failed", "command", command, "timed_out", result.TimedOut)
	}
	return result
}

// ValidateCommand checks a command against the policy without executing
// anything.
func (s *Surface) ValidateCommand(command string) security.ValidationResult {
	result := s.validator.Validate(command, "")
	s.record(audit.Event{
		Tool:    "validate_command",
		Command: command,
		Allowed: result.IsAllowed,
		Success: result.IsAllowed,
		Detail:  result.Reason,
	})
	return result
}

// ListAllowedCommands returns a snapshot of the whitelist.
func (s *Surface) ListAllowedCommands() []string {
	return s.policy.AllowedCommands()
}

// ListAllowedDirectories returns a snapshot of the directory patterns.
func (s *Surface) ListAllowedDirectories() []string {
	return s.policy.AllowedDirectories()
}

// GetSecurityConfig summarizes the loaded policy.
func (s *Surface) GetSecurityConfig() SecurityConfigSummary {
	return SecurityConfigSummary{
		AllowedCommandsCount:    len(s.policy.AllowedCommands()),
		AllowedDirectoriesCount: len(s.policy.AllowedDirectories()),
		BlockedPatternsCount:    len(s.policy.BlockedPatterns()),
		MaxCommandLength:        s.policy.MaxCommandLength(),
		TimeoutSeconds:          s.policy.TimeoutSeconds(),
	}
}

func (s *Surface) record(event audit.Event) {
	if err := s.store.Record(event); err != nil {
		s.logger.Warn("audit record failed", "error", err)
	}
}
