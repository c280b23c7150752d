package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile        string
	logLevel       string
	logFormat      string
	externalCopy   bool
	noAdvisoryLock bool
)

var rootCmd = &cobra.Command{
	Use:   "pgslice",
	Short: "Referentially-consistent Postgres data slice extractor",
	Long: `pgslice extracts a referentially-consistent slice of a Postgres
database rooted at a single row, following foreign keys outward in both
directions and writing the result to delimiter-separated CSV ready for
bulk load into another database.

Features:
  - Automatic table dependency resolution using Kahn's algorithm
  - Direct-descendant vs outsider table partitioning
  - Session-level advisory locking to prevent concurrent runs on one root
  - Optional external psql \copy path alongside the in-process extraction
  - Post-run invariant self-check of the written CSV output`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "dataSource.json",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, console)")

	rootCmd.PersistentFlags().BoolVar(&externalCopy, "external-copy", false,
		"Also shell out to psql \\copy alongside the in-process extraction")
	rootCmd.PersistentFlags().BoolVar(&noAdvisoryLock, "no-advisory-lock", false,
		"Skip the Postgres session advisory lock for this run")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel       string
	LogFormat      string
	ExternalCopy   bool
	NoAdvisoryLock bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:       logLevel,
		LogFormat:      logFormat,
		ExternalCopy:   externalCopy,
		NoAdvisoryLock: noAdvisoryLock,
	}
}
