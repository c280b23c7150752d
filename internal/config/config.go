// Package config provides configuration structures and loading for pgslice.
package config

// Config is the complete dataSource.json configuration: where to connect
// for extraction, how to emit load commands for the optional destination,
// and the ambient logging/tooling settings.
type Config struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	DBName   string `json:"dbName" mapstructure:"dbName"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	SSL      bool   `json:"sslEnabled" mapstructure:"sslEnabled"`

	OutputDir string `json:"outputDir" mapstructure:"outputDir"`

	Destination *DatabaseConfig `json:"destination,omitempty" mapstructure:"destination"`

	ExternalCopyEnabled bool   `json:"externalCopyEnabled" mapstructure:"externalCopyEnabled"`
	AdvisoryLockEnabled bool   `json:"advisoryLockEnabled" mapstructure:"advisoryLockEnabled"`
	PsqlPath            string `json:"psqlPath" mapstructure:"psqlPath"`

	LogLevel  string `json:"logLevel" mapstructure:"logLevel"`
	LogFormat string `json:"logFormat" mapstructure:"logFormat"`
}

// DatabaseConfig is a standalone Postgres connection target, used for the
// optional destination (bulk-load) side.
type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	DBName   string `json:"dbName" mapstructure:"dbName"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	SSL      bool   `json:"sslEnabled" mapstructure:"sslEnabled"`
}

// DefaultConfig returns a Config with the documented defaults applied; Load
// unmarshals dataSource.json on top of this so an omitted key keeps its
// default rather than zeroing out.
func DefaultConfig() *Config {
	return &Config{
		Port:                5432,
		SSL:                 false,
		OutputDir:           "data",
		ExternalCopyEnabled: false,
		AdvisoryLockEnabled: true,
		PsqlPath:            "psql",
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// SSLMode returns the libpq sslmode value matching SSL.
func (c *Config) SSLMode() string {
	if c.SSL {
		return "require"
	}
	return "disable"
}

// SSLMode returns the libpq sslmode value matching SSL.
func (d *DatabaseConfig) SSLMode() string {
	if d.SSL {
		return "require"
	}
	return "disable"
}
