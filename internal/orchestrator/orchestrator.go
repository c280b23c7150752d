// Package orchestrator wires schema introspection, graph building, data
// search, the invariant self-check, and bulk-load command emission into one
// end-to-end extraction run.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dbsmedya/pgslice/internal/bulkload"
	"github.com/dbsmedya/pgslice/internal/config"
	"github.com/dbsmedya/pgslice/internal/database"
	"github.com/dbsmedya/pgslice/internal/graph"
	"github.com/dbsmedya/pgslice/internal/introspect"
	"github.com/dbsmedya/pgslice/internal/invariant"
	"github.com/dbsmedya/pgslice/internal/lock"
	"github.com/dbsmedya/pgslice/internal/logger"
	"github.com/dbsmedya/pgslice/internal/search"
)

// Report summarizes a completed run for the CLI to print.
type Report struct {
	RootTable       string
	RootID          string
	OutDir          string
	DescendantOrder []string
	OutsiderOrder   []string
	RowCounts       map[string]int
	LoadCommandsAt  string
}

// Run executes the full pipeline against cfg for a single root table/id:
// connect, acquire the advisory lock, discover the graph, extract
// descendants then outsiders, self-check the output, and emit load commands
// for the optional destination.
func Run(ctx context.Context, cfg *config.Config, rootTable, rootID string, log *logger.Logger) (*Report, error) {
	runLogger := log.WithRootID(rootTable, rootID)

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("orchestrator: connect: %w", err)
	}
	defer dbManager.Close()

	if cfg.AdvisoryLockEnabled {
		runLock := lock.NewRunLock(dbManager.Source, rootTable, rootID)
		if err := runLock.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("orchestrator: acquire advisory lock: %w", err)
		}
		defer runLock.Release(ctx)
	}

	state, order, insertOrder, err := buildGraph(ctx, dbManager.Source, rootTable, rootID)
	if err != nil {
		return nil, err
	}

	descendants := make([]string, 0, len(order))
	for _, table := range order {
		if state.IsDirectDescendant(table) {
			descendants = append(descendants, table)
		}
	}

	outDir := cfg.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: create output dir: %w", err)
	}

	dest := bulkload.Destination{PsqlPath: cfg.PsqlPath}
	if cfg.Destination != nil {
		dest = bulkload.Destination{
			PsqlPath: cfg.PsqlPath,
			Host:     cfg.Destination.Host,
			Port:     cfg.Destination.Port,
			User:     cfg.Destination.Username,
			Password: cfg.Destination.Password,
			DBName:   cfg.Destination.DBName,
			SSLMode:  cfg.Destination.SSLMode(),
		}
	}
	emitter := bulkload.New(dest, outDir, runLogger.Zap())

	commands := make([]string, len(order))
	for i, table := range order {
		commands[i] = emitter.CommandFor(table)
	}
	if err := writeGraphInfo(state, outDir, order, insertOrder, commands); err != nil {
		return nil, fmt.Errorf("orchestrator: write graph info: %w", err)
	}

	var external *search.ExternalCopyParams
	if cfg.ExternalCopyEnabled {
		external = &search.ExternalCopyParams{
			PsqlPath: cfg.PsqlPath,
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.Username,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode(),
		}
	}

	engine := search.New(dbManager.Source, state, outDir, runLogger.Zap(), external)

	if err := engine.ExtractDescendants(ctx, order); err != nil {
		return nil, fmt.Errorf("orchestrator: extract descendants: %w", err)
	}
	if err := engine.ExtractOutsiders(ctx, insertOrder); err != nil {
		return nil, fmt.Errorf("orchestrator: extract outsiders: %w", err)
	}

	violations, err := invariant.Check(state, outDir, engine.RowCounts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: invariant check: %w", err)
	}
	if len(violations) > 0 {
		for _, v := range violations {
			runLogger.Error("invariant violation", zap.String("table", v.Table), zap.String("detail", v.Message))
		}
		return nil, fmt.Errorf("orchestrator: %d invariant violation(s), see log for detail", len(violations))
	}

	loadPath := ""
	if cfg.Destination != nil {
		loadPath, err = emitter.Emit(order)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: emit load commands: %w", err)
		}
	}

	runLogger.Info("extraction run complete", zap.Int("tables", len(state.ReachedTables())))

	return &Report{
		RootTable:       rootTable,
		RootID:          rootID,
		OutDir:          outDir,
		DescendantOrder: descendants,
		OutsiderOrder:   insertOrder,
		RowCounts:       engine.RowCounts,
		LoadCommandsAt:  loadPath,
	}, nil
}

// buildGraph runs introspection, BFS discovery, partitioning, and both
// topological sorts, returning the populated state, the global order L
// (every reached table, parents before children; descendant extraction skips
// the outsiders in it), and the
// outsider insert order (parents before referencers, the bulk-load-safe
// direction — extraction walks it in reverse).
func buildGraph(ctx context.Context, db *sql.DB, rootTable, rootID string) (*graph.State, []string, []string, error) {
	schema := introspect.New(db)
	builder := graph.NewBuilder(schema)

	state, err := builder.Build(ctx, rootTable, rootID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("orchestrator: build graph: %w", err)
	}

	if err := graph.Partition(state); err != nil {
		return nil, nil, nil, fmt.Errorf("orchestrator: partition graph: %w", err)
	}

	order, err := graph.TopologicalSort(state)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("orchestrator: topological sort: %w", err)
	}

	insertOrder, err := graph.OutsiderTopologicalSort(state)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("orchestrator: outsider topological sort: %w", err)
	}

	return state, order, insertOrder, nil
}
