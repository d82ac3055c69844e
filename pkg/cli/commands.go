package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/execbox/execbox-mcp/internal/errors"
	"github.com/execbox/execbox-mcp/internal/policy"
	"github.com/execbox/execbox-mcp/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gatekeeper as MCP tools over stdio",
	RunE:  runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate [command...]",
	Short: "Validate a command against the policy without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print a summary of the loaded security policy",
	RunE:  runPolicy,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default starter policy file",
	RunE:  runInit,
}

func runServe(cmd *cobra.Command, args []string) error {
	settings, err := buildSettings()
	if err != nil {
		return err
	}

	a, err := app.Bootstrap(settings)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	defer a.Close()

	return a.Run(cmd.Context(), os.Stdin, os.Stdout)
}

func runValidate(cmd *cobra.Command, args []string) error {
	settings, err := buildSettings()
	if err != nil {
		return err
	}

	a, err := app.Bootstrap(settings)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	defer a.Close()

	result := a.Surface().ValidateCommand(strings.Join(args, " "))

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !result.IsAllowed {
		return fmt.Errorf("%w: command denied: %s", errors.ErrExecValidation, result.Reason)
	}
	return nil
}

func runPolicy(cmd *cobra.Command, args []string) error {
	settings, err := buildSettings()
	if err != nil {
		return err
	}

	// Summary only needs the policy itself, not audit or executor wiring.
	pol, err := policy.Load(settings.PolicyPath)
	if err != nil {
		return err
	}

	summary := map[string]any{
		"policy_path":               settings.PolicyPath,
		"allowed_commands_count":    len(pol.AllowedCommands()),
		"allowed_directories_count": len(pol.AllowedDirectories()),
		"blocked_patterns_count":    len(pol.BlockedPatterns()),
		"max_command_length":        pol.MaxCommandLength(),
		"timeout_seconds":           pol.TimeoutSeconds(),
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := viper.GetString("policy")
	if err := policy.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default policy to %s\n", path)
	return nil
}
