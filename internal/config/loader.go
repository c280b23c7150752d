package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load reads a JSON dataSource config from configPath and expands
// ${VAR}/$VAR environment references in its connection fields.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)
	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured viper instance,
// useful in tests that set config values in memory instead of from a file.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	substituteEnvVars(cfg)
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func substituteEnvVars(cfg *Config) {
	cfg.Host = expandEnvVar(cfg.Host)
	cfg.Username = expandEnvVar(cfg.Username)
	cfg.Password = expandEnvVar(cfg.Password)
	cfg.DBName = expandEnvVar(cfg.DBName)

	if cfg.Destination != nil {
		cfg.Destination.Host = expandEnvVar(cfg.Destination.Host)
		cfg.Destination.Username = expandEnvVar(cfg.Destination.Username)
		cfg.Destination.Password = expandEnvVar(cfg.Destination.Password)
		cfg.Destination.DBName = expandEnvVar(cfg.Destination.DBName)
	}
}

func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// ApplyOverrides applies CLI flag overrides to the loaded configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, externalCopy, noAdvisoryLock bool) {
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	if externalCopy {
		c.ExternalCopyEnabled = true
	}
	if noAdvisoryLock {
		c.AdvisoryLockEnabled = false
	}
}
