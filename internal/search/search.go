// Package search implements the data search engine: it walks a graph.State
// in dependency order, builds the WHERE clause that isolates each table's
// rows, and streams the result to delimiter-separated CSV.
package search

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dbsmedya/pgslice/internal/graph"
	"github.com/dbsmedya/pgslice/internal/sqlutil"
	"github.com/dbsmedya/pgslice/internal/types"
)

// cellDelimiter is the ASCII Group Separator. It almost never occurs in
// real column data, which is why it replaces the comma as the CSV field
// separator throughout the engine's output.
const cellDelimiter = rune(0x1D)

// ExternalCopyParams carries the connection parameters used to shell out to
// psql for the optional \copy TO path. It is nil when externalCopyEnabled is
// false.
type ExternalCopyParams struct {
	PsqlPath string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Engine extracts table rows against a single source connection, tracking
// the parsed-projection values needed to build each subsequent WHERE clause
// in memory as it goes.
type Engine struct {
	db       *sql.DB
	state    *graph.State
	outDir   string
	logger   *zap.Logger
	external *ExternalCopyParams

	// projections[table][col] holds every value written to that column
	// across the table's extraction, used to seed descendant/outsider WHERE
	// clauses further down the walk.
	projections map[string]map[string][]string

	// RowCounts records how many rows were written per table, exposed for
	// the invariant self-check and the final run report.
	RowCounts map[string]int
}

// New returns an Engine that writes CSV output under outDir.
func New(db *sql.DB, state *graph.State, outDir string, logger *zap.Logger, external *ExternalCopyParams) *Engine {
	return &Engine{
		db:          db,
		state:       state,
		outDir:      outDir,
		logger:      logger,
		external:    external,
		projections: make(map[string]map[string][]string),
		RowCounts:   make(map[string]int),
	}
}

// ExtractDescendants extracts the root and every direct descendant, in the
// order produced by graph.TopologicalSort (parents before children), so a
// table's parent is always already projected before the table's own WHERE
// clause is built.
func (e *Engine) ExtractDescendants(ctx context.Context, order []string) error {
	for _, table := range order {
		if !e.state.IsDirectDescendant(table) {
			continue
		}
		where, args, err := e.descendantWhere(table)
		if err != nil {
			return fmt.Errorf("search: where clause for %q: %w", table, err)
		}
		if err := e.extractTable(ctx, table, where, args); err != nil {
			return err
		}
	}
	return nil
}

// ExtractOutsiders extracts every outsider table in the reverse of the order
// produced by graph.OutsiderTopologicalSort. That order is parent-before-
// referencer (the convention used for FK-safe bulk-load insertion); outsider
// extraction needs the opposite direction, since an outsider's own rows are
// found by the FK values recorded in a table that already references it,
// and that referencing table must have been extracted first. An outsider
// with no referencing values in scope is not queried: an empty raw CSV is
// written for it and it gets no RowCounts entry.
func (e *Engine) ExtractOutsiders(ctx context.Context, insertOrder []string) error {
	for i := len(insertOrder) - 1; i >= 0; i-- {
		table := insertOrder[i]
		where, args, err := e.outsiderWhere(table)
		if err != nil {
			return fmt.Errorf("search: where clause for %q: %w", table, err)
		}
		if where == "" {
			e.logger.Warn("outsider table has no referencing rows in scope, skipping its query", zap.String("table", table))
			tableDir := filepath.Join(e.outDir, table, "data_search")
			if err := os.MkdirAll(tableDir, 0o755); err != nil {
				return fmt.Errorf("search: create %q: %w", tableDir, err)
			}
			f, err := os.Create(filepath.Join(tableDir, table+".csv"))
			if err != nil {
				return fmt.Errorf("search: create empty CSV for %q: %w", table, err)
			}
			f.Close()
			continue
		}
		if err := e.extractTable(ctx, table, where, args); err != nil {
			return err
		}
	}
	return nil
}

// descendantWhere builds the WHERE clause for a direct descendant table.
// The root table is filtered on its own primary key; every other descendant
// T is filtered by OR-ing, for each direct-descendant parent P in
// State.Deps[T], "<childCol> IN (values)" where childCol is T's own FK
// column referencing P (State.FKeys[T][P]) and values come from P's already
// projected column State.FKeyCols[P][childCol].
func (e *Engine) descendantWhere(table string) (string, []interface{}, error) {
	if table == e.state.Root {
		pkCol, err := e.rootPKColumn()
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s = $1", sqlutil.QuoteIdentifier(pkCol)), []interface{}{e.state.RootID}, nil
	}

	var clauses []string
	var args []interface{}
	argN := 1

	for _, parent := range e.state.DepsOf(table) {
		if !e.state.IsDirectDescendant(parent) {
			continue
		}
		childCol, ok := e.state.FKeys[table][parent]
		if !ok {
			continue
		}
		parentCol, ok := e.state.FKeyCols[parent][childCol]
		if !ok {
			continue
		}
		values := e.projections[parent][parentCol]
		if len(values) == 0 {
			continue
		}
		placeholder := make([]string, len(values))
		for i, v := range values {
			placeholder[i] = fmt.Sprintf("$%d", argN)
			args = append(args, v)
			argN++
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", sqlutil.QuoteIdentifier(childCol), strings.Join(placeholder, ", ")))
	}

	if len(clauses) == 0 {
		// No direct-descendant parent has projected any values yet (for
		// instance, the root query itself returned zero rows). Seed a
		// clause that is always well-formed but matches nothing, so the
		// table still gets an (empty) CSV instead of aborting the run.
		return "1 = 2", nil, nil
	}
	return strings.Join(clauses, " OR "), args, nil
}

// outsiderWhere builds the WHERE clause for an outsider table T. For every
// dependant D in State.Inv[T] that has already been extracted, it OR's in
// "<parentCol> IN (values)" where childCol = State.InvFKeys[T][D] (D's FK
// column pointing at T), parentCol = State.FKeyCols[T][childCol] (T's own
// referenced column, typically its primary key), and values come from D's
// already projected column childCol.
func (e *Engine) outsiderWhere(table string) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}
	argN := 1

	for _, dependant := range e.state.InvOf(table) {
		proj, ok := e.projections[dependant]
		if !ok {
			continue
		}
		childCol, ok := e.state.InvFKeys[table][dependant]
		if !ok {
			continue
		}
		values := filterNonNull(proj[childCol])
		if len(values) == 0 {
			continue
		}
		parentCol, ok := e.state.FKeyCols[table][childCol]
		if !ok {
			continue
		}
		placeholder := make([]string, len(values))
		for i, v := range values {
			placeholder[i] = fmt.Sprintf("$%d", argN)
			args = append(args, v)
			argN++
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", sqlutil.QuoteIdentifier(parentCol), strings.Join(placeholder, ", ")))
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return strings.Join(clauses, " OR "), args, nil
}

// filterNonNull drops NULL seed values (represented on the wire as the
// empty string produced by types.ToCellString(nil)) before they can be
// turned into a spurious `= ''` disjunct.
func filterNonNull(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (e *Engine) rootPKColumn() (string, error) {
	for col := range e.state.TableCols[e.state.Root] {
		if col == "id" {
			return col, nil
		}
	}
	for col := range e.state.TableCols[e.state.Root] {
		return col, nil
	}
	return "", fmt.Errorf("search: root table %q has no columns", e.state.Root)
}

// extractTable runs the query, streams rows to delimiter-separated CSV, and
// records the values of every needed-FK column for later WHERE clauses.
func (e *Engine) extractTable(ctx context.Context, table, where string, args []interface{}) error {
	cols := e.state.TableCols[table]
	colNames := make([]string, 0, len(cols))
	for name := range cols {
		colNames = append(colNames, name)
	}

	quoted := make([]string, len(colNames))
	for i, c := range colNames {
		quoted[i] = sqlutil.QuoteIdentifier(c)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(quoted, ", "), sqlutil.QuoteIdentifier(table), where)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("search: query %q: %w", table, err)
	}
	defer rows.Close()

	tableDir := filepath.Join(e.outDir, table, "data_search")
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		return fmt.Errorf("search: create %q: %w", tableDir, err)
	}
	rawPath := filepath.Join(tableDir, table+".csv")
	rawFile, err := os.Create(rawPath)
	if err != nil {
		return fmt.Errorf("search: create %q: %w", rawPath, err)
	}
	defer rawFile.Close()

	w := csv.NewWriter(rawFile)
	w.Comma = cellDelimiter

	needed := e.state.NeededColumns(table)
	neededValues := make(map[string][]string, len(needed))

	scanDest := make([]interface{}, len(colNames))
	scanBuf := make([]interface{}, len(colNames))
	for i := range scanDest {
		scanDest[i] = &scanBuf[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return fmt.Errorf("search: scan row in %q: %w", table, err)
		}
		record := make([]string, len(colNames))
		for i, name := range colNames {
			cell := types.SanitizeCell(types.ToCellString(scanBuf[i]))
			record[i] = cell
			if _, ok := e.neededSet(table)[name]; ok {
				neededValues[name] = append(neededValues[name], cell)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("search: write row in %q: %w", table, err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("search: iterate rows in %q: %w", table, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("search: flush %q: %w", table, err)
	}

	e.projections[table] = neededValues
	e.RowCounts[table] = count

	if count > 0 {
		if err := e.writeParsedProjection(table, needed, neededValues); err != nil {
			return err
		}
	}

	if e.external != nil {
		if err := e.externalCopy(table, colNames, where, args); err != nil {
			e.logger.Warn("external copy failed, in-process output remains authoritative",
				zap.String("table", table), zap.Error(err))
		}
	}

	e.logger.Info("extracted table", zap.String("table", table), zap.Int("rows", count))
	return nil
}

func (e *Engine) neededSet(table string) map[string]struct{} {
	needed := e.state.NeededColumns(table)
	set := make(map[string]struct{}, len(needed))
	for _, c := range needed {
		set[c] = struct{}{}
	}
	return set
}

// writeParsedProjection writes the restricted CSV (header plus the table's
// needed-FK columns only) as an inspectable on-disk artifact. WHERE-clause
// construction never reads it back; it seeds later tables from the
// in-memory projections map, and only the invariant self-check reads this
// file. Callers only invoke this once at least one row has been
// produced, so the file is never written header-only.
func (e *Engine) writeParsedProjection(table string, needed []string, values map[string][]string) error {
	if len(needed) == 0 {
		return nil
	}
	path := filepath.Join(e.outDir, table, "data_search", table+"_parsed.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("search: create parsed projection for %q: %w", table, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = cellDelimiter
	if err := w.Write(needed); err != nil {
		return fmt.Errorf("search: write parsed header for %q: %w", table, err)
	}

	rowCount := 0
	for _, col := range needed {
		if n := len(values[col]); n > rowCount {
			rowCount = n
		}
	}
	for i := 0; i < rowCount; i++ {
		record := make([]string, len(needed))
		for j, col := range needed {
			if i < len(values[col]) {
				record[j] = values[col][i]
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("search: write parsed row for %q: %w", table, err)
		}
	}
	w.Flush()
	return w.Error()
}

// externalCopy shells out to psql and runs the same selection through
// \copy ... TO, writing a second, supplementary bulk-load-ready file. It is
// never consulted by the engine itself; the in-process CSV above remains the
// single source of truth for WHERE-clause seeding and the invariant check.
func (e *Engine) externalCopy(table string, colNames []string, where string, args []interface{}) error {
	if e.external.PsqlPath == "" {
		e.external.PsqlPath = "psql"
	}
	literalWhere, err := inlineArgs(where, args)
	if err != nil {
		return err
	}

	quoted := make([]string, len(colNames))
	for i, c := range colNames {
		quoted[i] = sqlutil.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(quoted, ", "), sqlutil.QuoteIdentifier(table), literalWhere)
	dest := filepath.Join(e.outDir, table+"_bulk_copy.csv")
	copyCmd := fmt.Sprintf(`\copy (%s) TO '%s' WITH (FORMAT csv, HEADER true, DELIMITER E'\x1D')`, query, dest)

	args2 := []string{
		"--host", e.external.Host,
		"--port", fmt.Sprintf("%d", e.external.Port),
		"--username", e.external.User,
		"--dbname", e.external.DBName,
		"-c", copyCmd,
	}
	cmd := exec.Command(e.external.PsqlPath, args2...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+e.external.Password, "PGSSLMODE="+e.external.SSLMode)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("psql \\copy for %q: %w: %s", table, err, string(out))
	}
	return nil
}

// inlineArgs substitutes $N placeholders with quoted literals for the
// external \copy path, which runs as a standalone psql statement and cannot
// take bound parameters the way database/sql can.
func inlineArgs(where string, args []interface{}) (string, error) {
	out := where
	for i := len(args); i >= 1; i-- {
		placeholder := fmt.Sprintf("$%d", i)
		literal := fmt.Sprintf("'%s'", strings.ReplaceAll(fmt.Sprintf("%v", args[i-1]), "'", "''"))
		out = strings.ReplaceAll(out, placeholder, literal)
	}
	return out, nil
}
