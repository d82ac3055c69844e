package app

import (
	"fmt"

	"github.com/execbox/execbox-mcp/internal/audit"
	"github.com/execbox/execbox-mcp/internal/executor"
	"github.com/execbox/execbox-mcp/internal/logging"
	"github.com/execbox/execbox-mcp/internal/mcp"
	"github.com/execbox/execbox-mcp/internal/policy"
	"github.com/execbox/execbox-mcp/internal/tools"
)

// Bootstrap builds the application. A policy that fails to load or
// validate aborts startup: the process never serves requests on a partial
// policy.
func Bootstrap(settings Settings) (*App, error) {
	logger, closeLog, err := logging.New(logging.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		File:   settings.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("logging setup: %w", err)
	}

	a := &App{settings: settings, logger: logger}
	a.closers = append(a.closers, closeLog)

	pol, err := policy.Load(settings.PolicyPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.policy = pol
	logger.Info("policy loaded",
		"path", settings.PolicyPath,
		"commands", len(pol.AllowedCommands()),
		"directories", len(pol.AllowedDirectories()),
		"patterns", len(pol.BlockedPatterns()))

	var store audit.Store = audit.Nop{}
	if settings.AuditDBPath != "" {
		s, err := audit.Open(settings.AuditDBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("audit setup: %w", err)
		}
		store = s
		a.closers = append(a.closers, s.Close)
	}

	exec := executor.New(executor.WithMaxOutput(settings.MaxOutputBytes))
	a.surface = tools.New(pol, exec, store, logger)

	a.server = mcp.NewServer(ServerName, Version, logger)
	mcp.RegisterSurface(a.server, a.surface)

	return a, nil
}
