// Package cli defines the command-line surface: a serve command speaking
// MCP over stdio plus one-shot helpers for policy management.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "execbox-mcp",
	Short: "Restricted PowerShell execution gatekeeper with an MCP interface",
	Long: `execbox-mcp validates shell commands against a security policy
(command whitelist, blocked patterns, directory allowlist, length and
timeout limits) and executes permitted commands through a restricted
PowerShell invocation. It exposes the gatekeeper as Model Context
Protocol tools over stdio.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("policy", "config.json", "Path to the security policy JSON file")
	rootCmd.PersistentFlags().String("audit-db", "execbox_audit.db", "Path to the SQLite audit database (empty disables auditing)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format: json or text")
	rootCmd.PersistentFlags().String("log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().Int("max-output", 1048576, "Maximum captured bytes per output stream")

	viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(initCmd)
}

func init() {
	setViperDefaults()

	viper.SetConfigName("execbox.config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	viper.SetEnvPrefix("EXECBOX")
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
