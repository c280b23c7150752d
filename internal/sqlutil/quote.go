// Package sqlutil provides SQL identifier-quoting helpers.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a Postgres identifier (table name, column name)
// with double quotes, doubling any existing double quotes.
// Example: "my_table" -> `"my_table"`
// Example: `my"table` -> `"my""table"`
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// validIdentifierRegex matches the identifier characters this engine
// accepts from schema introspection: alphanumeric and underscore only.
// Postgres allows more, but nothing this engine introspects should need it.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if name contains only alphanumeric characters and
// underscores, a defense-in-depth check against SQL injection even though
// every identifier this engine sees comes from information_schema, not user
// input.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes name after validating it. Use this when an
// identifier crosses a trust boundary (e.g. a table name from a CLI flag).
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid
// characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
