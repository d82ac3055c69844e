// Package app wires configuration, logging, auditing, policy, and the MCP
// server into a runnable application.
package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/execbox/execbox-mcp/internal/mcp"
	"github.com/execbox/execbox-mcp/internal/policy"
	"github.com/execbox/execbox-mcp/internal/tools"
)

// Version is the server version reported to MCP clients.
const Version = "1.0.0"

// ServerName is the identity reported to MCP clients.
const ServerName = "execbox-mcp"

// Settings holds the app-level configuration. The security policy itself
// lives in its own strictly-validated JSON file at PolicyPath.
type Settings struct {
	PolicyPath     string
	AuditDBPath    string // empty disables auditing
	LogLevel       string
	LogFormat      string
	LogFile        string // empty logs to stderr
	MaxOutputBytes int
}

// App is the assembled application.
type App struct {
	settings Settings
	logger   *slog.Logger
	policy   *policy.SecurityPolicy
	surface  *tools.Surface
	server   *mcp.Server
	closers  []func() error
}

// Run serves MCP frames from in to out until the stream closes or ctx is
// cancelled. stdout must carry only protocol frames; all logging goes to
// the configured sink.
func (a *App) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	a.logger.Info("serving MCP on stdio",
		"policy", a.settings.PolicyPath,
		"allowed_commands", len(a.policy.AllowedCommands()))
	return a.server.Serve(ctx, in, out)
}

// Surface exposes the tool facade, mainly for the one-shot CLI commands.
func (a *App) Surface() *tools.Surface {
	return a.surface
}

// Policy returns the loaded security policy.
func (a *App) Policy() *policy.SecurityPolicy {
	return a.policy
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Close releases the audit store and log file.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
