// Package estimator runs a dry-run preflight over a graph.State, reporting
// per-table row counts without writing anything to disk.
package estimator

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dbsmedya/pgslice/internal/graph"
	"github.com/dbsmedya/pgslice/internal/sqlutil"
)

// Estimate is the row-count and WHERE clause that would be used to extract
// one table, without having actually extracted it.
type Estimate struct {
	Table string
	Where string
	Count int64
}

// Estimator mirrors the WHERE-clause construction of the search engine, but
// only ever pulls needed-FK-column values and a COUNT(*), never full rows,
// and writes nothing to disk.
type Estimator struct {
	db     *sql.DB
	state  *graph.State
	logger *zap.Logger

	seeds map[string]map[string][]string
}

// New returns an Estimator over state, querying db.
func New(db *sql.DB, state *graph.State, logger *zap.Logger) *Estimator {
	return &Estimator{db: db, state: state, logger: logger, seeds: make(map[string]map[string][]string)}
}

// Run estimates every direct descendant (in descOrder) and every outsider
// (in the reverse of insertOrder, matching search.Engine.ExtractOutsiders),
// returning one Estimate per table in the order it was computed.
func (e *Estimator) Run(ctx context.Context, descOrder, insertOrder []string) ([]Estimate, error) {
	var estimates []Estimate

	for _, table := range descOrder {
		if !e.state.IsDirectDescendant(table) {
			continue
		}
		est, err := e.estimateDescendant(ctx, table)
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, est)
	}

	for i := len(insertOrder) - 1; i >= 0; i-- {
		table := insertOrder[i]
		est, err := e.estimateOutsider(ctx, table)
		if err != nil {
			return nil, err
		}
		if est.Where == "" {
			continue
		}
		estimates = append(estimates, est)
	}

	return estimates, nil
}

func (e *Estimator) estimateDescendant(ctx context.Context, table string) (Estimate, error) {
	var where string
	var args []interface{}

	if table == e.state.Root {
		pkCol := e.rootPKColumn()
		where = fmt.Sprintf("%s = $1", sqlutil.QuoteIdentifier(pkCol))
		args = []interface{}{e.state.RootID}
	} else {
		var clauses []string
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
			values := e.seeds[parent][parentCol]
			if len(values) == 0 {
				continue
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = fmt.Sprintf("$%d", argN)
				args = append(args, v)
				argN++
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", sqlutil.QuoteIdentifier(childCol), strings.Join(placeholders, ", ")))
		}
		if len(clauses) == 0 {
			// Mirrors search.descendantWhere: no direct-descendant parent has
			// seeded values yet, so estimate against a clause that always
			// matches zero rows instead of failing the plan.
			where = "1 = 2"
		} else {
			where = strings.Join(clauses, " OR ")
		}
	}

	count, err := e.count(ctx, table, where, args)
	if err != nil {
		return Estimate{}, err
	}
	if err := e.seed(ctx, table, where, args); err != nil {
		return Estimate{}, err
	}
	return Estimate{Table: table, Where: where, Count: count}, nil
}

func (e *Estimator) estimateOutsider(ctx context.Context, table string) (Estimate, error) {
	var clauses []string
	var args []interface{}
	argN := 1

	for _, dependant := range e.state.InvOf(table) {
		proj, ok := e.seeds[dependant]
		if !ok {
			continue
		}
		childCol, ok := e.state.InvFKeys[table][dependant]
		if !ok {
			continue
		}
		values := proj[childCol]
		if len(values) == 0 {
			continue
		}
		parentCol, ok := e.state.FKeyCols[table][childCol]
		if !ok {
			continue
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = fmt.Sprintf("$%d", argN)
			args = append(args, v)
			argN++
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", sqlutil.QuoteIdentifier(parentCol), strings.Join(placeholders, ", ")))
	}

	if len(clauses) == 0 {
		return Estimate{Table: table}, nil
	}
	where := strings.Join(clauses, " OR ")

	count, err := e.count(ctx, table, where, args)
	if err != nil {
		return Estimate{}, err
	}
	if err := e.seed(ctx, table, where, args); err != nil {
		return Estimate{}, err
	}
	return Estimate{Table: table, Where: where, Count: count}, nil
}

func (e *Estimator) count(ctx context.Context, table, where string, args []interface{}) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", sqlutil.QuoteIdentifier(table), where)
	var count int64
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("estimator: count %q: %w", table, err)
	}
	return count, nil
}

// seed fetches only table's needed-FK columns, so later tables in the walk
// can build their own WHERE clause without this estimator ever reading a
// full row.
func (e *Estimator) seed(ctx context.Context, table, where string, args []interface{}) error {
	needed := e.state.NeededColumns(table)
	if len(needed) == 0 {
		return nil
	}
	quoted := make([]string, len(needed))
	for i, c := range needed {
		quoted[i] = sqlutil.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(quoted, ", "), sqlutil.QuoteIdentifier(table), where)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("estimator: seed query %q: %w", table, err)
	}
	defer rows.Close()

	values := make(map[string][]string, len(needed))
	scanBuf := make([]interface{}, len(needed))
	scanDest := make([]interface{}, len(needed))
	for i := range scanBuf {
		scanDest[i] = &scanBuf[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return fmt.Errorf("estimator: scan seed row in %q: %w", table, err)
		}
		for i, col := range needed {
			values[col] = append(values[col], fmt.Sprintf("%v", scanBuf[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("estimator: iterate seed rows in %q: %w", table, err)
	}
	e.seeds[table] = values
	return nil
}

func (e *Estimator) rootPKColumn() string {
	for col := range e.state.TableCols[e.state.Root] {
		if col == "id" {
			return col
		}
	}
	for col := range e.state.TableCols[e.state.Root] {
		return col
	}
	return "id"
}
