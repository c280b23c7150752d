package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/pgslice/internal/config"
	"github.com/dbsmedya/pgslice/internal/logger"
	"github.com/dbsmedya/pgslice/internal/orchestrator"
)

var (
	extractTable string
	extractID    string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a referentially-consistent slice rooted at one row",
	Long: `Extract connects to the source database, discovers every table
reachable from a single root row by following foreign keys in both
directions, extracts each table's rows to delimiter-separated CSV under
the configured output directory, self-checks the result, and — if a
destination is configured — emits the psql \copy commands to load it.

Example:
  pgslice extract --config dataSource.json --table orders --id 42`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractTable, "table", "", "Root table name (required)")
	extractCmd.Flags().StringVar(&extractID, "id", "", "Root row id (required)")
	extractCmd.MarkFlagRequired("table")
	extractCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.ExternalCopy, overrides.NoAdvisoryLock)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()

	report, err := orchestrator.Run(ctx, cfg, extractTable, extractID, log)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "extracted %d tables to %s\n", len(report.RowCounts), report.OutDir)
	for _, table := range report.DescendantOrder {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d rows\n", table, report.RowCounts[table])
	}
	for _, table := range report.OutsiderOrder {
		if count, ok := report.RowCounts[table]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d rows\n", table, count)
		}
	}
	if report.LoadCommandsAt != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "load commands written to %s\n", report.LoadCommandsAt)
	}

	return nil
}
