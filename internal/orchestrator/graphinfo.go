package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbsmedya/pgslice/internal/graph"
	"github.com/dbsmedya/pgslice/internal/mermaidascii"
)

// writeGraphInfo writes ./<outDir>/graph-info.txt: the full reached-table
// set, the descendant and outsider orders, an ASCII render of the
// foreign-key graph, and the bulk-load \copy commands that would load the
// slice, whether or not a destination is configured. Run emits this before
// extraction so the graph is always on disk even when every table ends up
// empty.
func writeGraphInfo(state *graph.State, outDir string, descOrder, insertOrder, commands []string) error {
	path := filepath.Join(outDir, "graph-info.txt")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("orchestrator: create %q: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder

	fmt.Fprintf(&b, "root: %s (%s)\n", state.Root, state.RootID)
	fmt.Fprintf(&b, "reached: %d tables\n", len(state.ReachedTables()))
	for _, table := range state.ReachedTables() {
		kind := "outsider"
		if state.IsDirectDescendant(table) {
			kind = "descendant"
		}
		fmt.Fprintf(&b, "  - %s (%s)\n", table, kind)
	}

	b.WriteString("\nglobal order (L, every reached table, parents first):\n")
	for i, table := range descOrder {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, table)
	}

	b.WriteString("\noutsider insert order (bulk-load-safe direction):\n")
	for i, table := range insertOrder {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, table)
	}

	b.WriteString("\nbulk-load commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "  %s\n", cmd)
	}

	diagram, err := mermaidascii.RenderDiagram(graph.MermaidSyntax(state), nil)
	if err == nil {
		b.WriteString("\nrelation diagram:\n")
		b.WriteString(diagram)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("orchestrator: write %q: %w", path, err)
	}
	return nil
}
