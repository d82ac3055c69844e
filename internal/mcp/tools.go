package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/execbox/execbox-mcp/internal/tools"
)

type executeParams struct {
	Command          string `json:"command"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

type validateParams struct {
	Command string `json:"command"`
}

var executeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string", "description": "The PowerShell command to execute"},
		"working_directory": {"type": "string", "description": "Optional working directory for command execution"}
	},
	"required": ["command"]
}`)

var validateSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string", "description": "The PowerShell command to validate"}
	},
	"required": ["command"]
}`)

var emptySchema = json.RawMessage(`{"type": "object", "properties": {}}`)

// RegisterSurface exposes the five gatekeeper operations as MCP tools.
func RegisterSurface(s *Server, surface *tools.Surface) {
	s.Register(Tool{
		Name:        "execute_powershell",
		Description: "Execute a PowerShell command with security restrictions",
		InputSchema: executeSchema,
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var p executeParams
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return surface.ExecutePowerShell(ctx, p.Command, p.WorkingDirectory), nil
	})

	s.Register(Tool{
		Name:        "validate_command",
		Description: "Validate a PowerShell command without executing it",
		InputSchema: validateSchema,
	}, func(_ context.Context, args json.RawMessage) (any, error) {
		var p validateParams
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return surface.ValidateCommand(p.Command), nil
	})

	s.Register(Tool{
		Name:        "list_allowed_commands",
		Description: "Get the list of allowed PowerShell commands",
		InputSchema: emptySchema,
	}, func(context.Context, json.RawMessage) (any, error) {
		return surface.ListAllowedCommands(), nil
	})

	s.Register(Tool{
		Name:        "list_allowed_directories",
		Description: "Get the list of allowed working directories",
		InputSchema: emptySchema,
	}, func(context.Context, json.RawMessage) (any, error) {
		return surface.ListAllowedDirectories(), nil
	})

	s.Register(Tool{
		Name:        "get_security_config",
		Description: "Get the current security configuration summary",
		InputSchema: emptySchema,
	}, func(context.Context, json.RawMessage) (any, error) {
		return surface.GetSecurityConfig(), nil
	})
}
