package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, validateConnection("", c.Host, c.Port, c.Username, c.DBName)...)

	if c.Destination != nil {
		errors = append(errors, validateConnection("destination.", c.Destination.Host, c.Destination.Port, c.Destination.Username, c.Destination.DBName)...)
	}

	if c.PsqlPath == "" {
		errors = append(errors, ValidationError{Field: "psqlPath", Message: "psqlPath cannot be empty"})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.LogLevel] {
		errors = append(errors, ValidationError{Field: "logLevel", Message: "logLevel must be 'debug', 'info', 'warn', or 'error'"})
	}

	validFormats := map[string]bool{"json": true, "console": true, "": true}
	if !validFormats[c.LogFormat] {
		errors = append(errors, ValidationError{Field: "logFormat", Message: "logFormat must be 'json' or 'console'"})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateConnection(prefix, host string, port int, user, dbName string) ValidationErrors {
	var errors ValidationErrors

	if host == "" {
		errors = append(errors, ValidationError{Field: prefix + "host", Message: "host is required"})
	}
	if port <= 0 || port > 65535 {
		errors = append(errors, ValidationError{Field: prefix + "port", Message: "port must be between 1 and 65535"})
	}
	if user == "" {
		errors = append(errors, ValidationError{Field: prefix + "username", Message: "username is required"})
	}
	if dbName == "" {
		errors = append(errors, ValidationError{Field: prefix + "dbName", Message: "dbName is required"})
	}

	return errors
}
