package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/pgslice/internal/config"
	"github.com/dbsmedya/pgslice/internal/database"
	"github.com/dbsmedya/pgslice/internal/graph"
	"github.com/dbsmedya/pgslice/internal/introspect"
	"github.com/dbsmedya/pgslice/internal/mermaidascii"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var (
	planTable string
	planID    string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the extraction plan for a root table/id",
	Long: `Plan connects to the source database, discovers the foreign-key
graph reached from a single root row, and displays the extraction order
without writing anything to disk.

The plan shows:
  - Visual relation tree (using mermaid-ascii)
  - Descendant order (root and direct descendants, parents first)
  - Outsider insert order (the bulk-load-safe direction)
  - Detected table relationships

Example:
  pgslice plan --config dataSource.json --table orders --id 42`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planTable, "table", "", "Root table name (required)")
	planCmd.Flags().StringVar(&planID, "id", "", "Root row id (required)")
	planCmd.MarkFlagRequired("table")
	planCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.ExternalCopy, overrides.NoAdvisoryLock)

	ctx := context.Background()

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer dbManager.Close()

	schema := introspect.New(dbManager.Source)
	builder := graph.NewBuilder(schema)

	state, err := builder.Build(ctx, planTable, planID)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	if err := graph.Partition(state); err != nil {
		return fmt.Errorf("failed to partition graph: %w", err)
	}

	descOrder, err := graph.TopologicalSort(state)
	if err != nil {
		return fmt.Errorf("failed to compute descendant order: %w", err)
	}

	insertOrder, err := graph.OutsiderTopologicalSort(state)
	if err != nil {
		return fmt.Errorf("failed to compute outsider insert order: %w", err)
	}

	if err := printMermaidTree(state, cfg); err != nil {
		return fmt.Errorf("failed to render tree: %w", err)
	}
	fmt.Fprintln(outputWriter)

	printHeader("Extraction Plan: %s (%s)", planTable, planID)

	fmt.Fprintln(outputWriter)
	printSection("Root Overview")
	fmt.Fprintf(outputWriter, "  Root Table:   %s\n", state.Root)
	fmt.Fprintf(outputWriter, "  Root ID:      %s\n", state.RootID)
	fmt.Fprintf(outputWriter, "  Total Tables: %d\n", len(state.ReachedTables()))

	fmt.Fprintln(outputWriter)
	printSection("Descendant Order (root and direct descendants, parents first)")
	n := 0
	for _, table := range descOrder {
		if !state.IsDirectDescendant(table) {
			continue
		}
		n++
		printOrderItem(n, table, table == state.Root)
	}

	fmt.Fprintln(outputWriter)
	printSection("Outsider Insert Order (bulk-load-safe direction)")
	for i, table := range insertOrder {
		printOrderItem(i+1, table, false)
	}

	fmt.Fprintln(outputWriter)
	printSection("Detected Relationships")
	for _, table := range state.ReachedTables() {
		for _, parent := range state.DepsOf(table) {
			fk := state.FKeys[table][parent]
			fmt.Fprintf(outputWriter, "  • %s -> %s FK: %s\n", table, parent, fk)
		}
	}

	return nil
}

func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}

func printOrderItem(num int, table string, isRoot bool) {
	numStr := fmt.Sprintf("[%d]", num)
	if isRoot {
		fmt.Fprintf(outputWriter, "  %s %s (root)\n", numStr, table)
	} else {
		fmt.Fprintf(outputWriter, "  %s %s\n", numStr, table)
	}
}

// printMermaidTree generates and displays an ASCII tree of the discovered
// graph using mermaid-ascii.
func printMermaidTree(state *graph.State, cfg *config.Config) error {
	mermaidSyntax := generateMermaidSyntax(state)

	output, err := mermaidascii.RenderDiagram(mermaidSyntax, nil)
	if err != nil {
		return err
	}

	summaryLines := []string{
		"[ Tree Summary ]",
		strings.Repeat("-", 16),
		fmt.Sprintf("Root Table:    %s", state.Root),
		fmt.Sprintf("Root ID:       %s", state.RootID),
		fmt.Sprintf("Reached:       %d tables", len(state.ReachedTables())),
		fmt.Sprintf("Descendants:   %d tables", state.DirectDescendants.Len()),
		fmt.Sprintf("Outsiders:     %d tables", state.Outsiders.Len()),
		"",
		"[ Destination ]",
		strings.Repeat("-", 15),
		fmt.Sprintf("External copy:   %v", cfg.ExternalCopyEnabled),
		fmt.Sprintf("Advisory lock:   %v", cfg.AdvisoryLockEnabled),
	}

	fmt.Fprintln(outputWriter)
	printHeader("Relation Tree")
	fmt.Fprintln(outputWriter)

	printSideBySide(output, summaryLines, 4)

	return nil
}

// printSideBySide prints two blocks of text side by side, padding being the
// minimum number of spaces between the two columns.
func printSideBySide(leftContent string, rightLines []string, padding int) {
	leftLines := strings.Split(strings.TrimRight(leftContent, "\n"), "\n")

	leftWidth := 0
	for _, line := range leftLines {
		if w := len([]rune(line)); w > leftWidth {
			leftWidth = w
		}
	}

	leftHeight := len(leftLines)
	rightHeight := len(rightLines)
	maxHeight := leftHeight
	if rightHeight > maxHeight {
		maxHeight = rightHeight
	}

	for i := 0; i < maxHeight; i++ {
		leftPart := ""
		rightPart := ""
		if i < leftHeight {
			leftPart = leftLines[i]
		}
		if i < rightHeight {
			rightPart = rightLines[i]
		}

		fmt.Fprint(outputWriter, leftPart)

		spacesNeeded := leftWidth - len([]rune(leftPart)) + padding
		if spacesNeeded > 0 {
			fmt.Fprint(outputWriter, strings.Repeat(" ", spacesNeeded))
		}

		fmt.Fprintln(outputWriter, rightPart)
	}
}

// generateMermaidSyntax creates mermaid graph syntax from the discovered
// foreign-key edges.
func generateMermaidSyntax(state *graph.State) string {
	return graph.MermaidSyntax(state)
}

// sanitizeNodeID ensures table names are valid mermaid node IDs.
func sanitizeNodeID(table string) string {
	return graph.SanitizeNodeID(table)
}
