package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/execbox/execbox-mcp/internal/errors"
	"github.com/execbox/execbox-mcp/pkg/app"
)

// setViperDefaults sets all default configuration values in Viper.
func setViperDefaults() {
	viper.SetDefault("policy", "config.json")
	viper.SetDefault("audit-db", "execbox_audit.db")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "json")
	viper.SetDefault("log-file", "")
	viper.SetDefault("max-output", 1048576)
}

// initConfig reads in the config file and ENV variables if set. Warnings
// go to stderr; stdout carries only protocol frames in serve mode.
func initConfig() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found; using defaults and flags
	}
}

// buildSettings constructs app.Settings from Viper values.
func buildSettings() (app.Settings, error) {
	s := app.Settings{
		PolicyPath:     viper.GetString("policy"),
		AuditDBPath:    viper.GetString("audit-db"),
		LogLevel:       viper.GetString("log-level"),
		LogFormat:      viper.GetString("log-format"),
		LogFile:        viper.GetString("log-file"),
		MaxOutputBytes: viper.GetInt("max-output"),
	}
	if s.PolicyPath == "" {
		return app.Settings{}, &errors.ValidationError{Field: "policy", Value: s.PolicyPath, Err: fmt.Errorf("must not be empty")}
	}
	if s.MaxOutputBytes < 0 {
		return app.Settings{}, &errors.ValidationError{Field: "max-output", Value: s.MaxOutputBytes, Err: fmt.Errorf("must not be negative")}
	}
	return s, nil
}
