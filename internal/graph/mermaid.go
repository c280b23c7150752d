package graph

import (
	"fmt"
	"strings"
)

// MermaidSyntax renders state's discovered foreign-key edges as a mermaid
// flowchart, used both by the CLI plan command's ASCII tree and by the
// graph-info.txt diagram written before an extraction run starts extracting.
func MermaidSyntax(state *State) string {
	var sb strings.Builder

	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    %s\n", SanitizeNodeID(state.Root)))

	for _, table := range state.ReachedTables() {
		for _, parent := range state.DepsOf(table) {
			sb.WriteString(fmt.Sprintf("    %s -->|FK| %s\n", SanitizeNodeID(parent), SanitizeNodeID(table)))
		}
	}

	return sb.String()
}

// SanitizeNodeID ensures table names are valid mermaid node IDs.
func SanitizeNodeID(table string) string {
	return strings.NewReplacer(
		".", "_",
		"-", "_",
		" ", "_",
	).Replace(table)
}
