// Package bulkload generates and, optionally, executes the psql \copy
// commands that load a previously extracted slice into a destination
// database in foreign-key-safe order.
package bulkload

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dbsmedya/pgslice/internal/sqlutil"
)

// Destination carries the connection parameters used to shell out to psql
// against the destination database.
type Destination struct {
	PsqlPath string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Result records the outcome of one table's load command.
type Result struct {
	Table   string
	Command string
	Err     error
}

// Emitter builds and runs the load commands for a slice already written to
// outDir, in the order given (the orchestrator passes the global order L:
// every reached table once, parents before children).
type Emitter struct {
	dest   Destination
	outDir string
	logger *zap.Logger
}

// New returns an Emitter targeting dest, reading CSVs from outDir.
func New(dest Destination, outDir string, logger *zap.Logger) *Emitter {
	if dest.PsqlPath == "" {
		dest.PsqlPath = "psql"
	}
	return &Emitter{dest: dest, outDir: outDir, logger: logger}
}

// CommandFor returns the \copy FROM invocation for table without running it.
func (e *Emitter) CommandFor(table string) string {
	path := filepath.Join(e.outDir, table, "data_search", table+".csv")
	return fmt.Sprintf(`\copy %s FROM '%s' WITH (FORMAT csv, HEADER false, DELIMITER E'\x1D')`, sqlutil.QuoteIdentifier(table), path)
}

// Emit writes every table's load command to a single .sql script under
// outDir and returns its path, without executing anything. Used when the
// caller wants to hand the load step to a separate process or review it
// first.
func (e *Emitter) Emit(order []string) (string, error) {
	path := filepath.Join(e.outDir, "load.sql")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("bulkload: create %q: %w", path, err)
	}
	defer f.Close()

	for _, table := range order {
		if _, err := fmt.Fprintln(f, e.CommandFor(table)); err != nil {
			return "", fmt.Errorf("bulkload: write command for %q: %w", table, err)
		}
	}
	return path, nil
}

// Run executes the load commands against the destination in order. A
// command failure is logged and recorded but does not stop the remaining
// tables from being attempted — a partially loaded slice is more useful to
// diagnose than a run that aborts on the first error.
func (e *Emitter) Run(order []string) []Result {
	results := make([]Result, 0, len(order))
	for _, table := range order {
		cmd := e.CommandFor(table)
		err := e.runOne(cmd)
		if err != nil {
			e.logger.Error("bulk load command failed", zap.String("table", table), zap.Error(err))
		} else {
			e.logger.Info("bulk load command succeeded", zap.String("table", table))
		}
		results = append(results, Result{Table: table, Command: cmd, Err: err})
	}
	return results
}

func (e *Emitter) runOne(copyCmd string) error {
	args := []string{
		"--host", e.dest.Host,
		"--port", fmt.Sprintf("%d", e.dest.Port),
		"--username", e.dest.User,
		"--dbname", e.dest.DBName,
		"-c", copyCmd,
	}
	cmd := exec.Command(e.dest.PsqlPath, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+e.dest.Password, "PGSSLMODE="+e.dest.SSLMode)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(out))
	}
	return nil
}
