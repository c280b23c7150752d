package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/pgslice/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate checks dataSource.json for syntax errors and required
fields without connecting to any database.

Example:
  pgslice validate --config dataSource.json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.ExternalCopy, overrides.NoAdvisoryLock)

	fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configFile)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "validation failed: %v\n", err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
	return nil
}
