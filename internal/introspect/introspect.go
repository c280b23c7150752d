// Package introspect queries Postgres catalog views to discover foreign-key
// relationships and column metadata, one table at a time, on demand.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/pgslice/internal/graph"
)

// Introspector answers schema questions against a single Postgres
// connection. It holds no state of its own; every call is a fresh query.
type Introspector struct {
	db *sql.DB
}

// New returns an Introspector backed by db.
func New(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

const childrenOfQuery = `
SELECT
    tc.table_name   AS child_table,
    kcu.column_name AS child_col,
    ccu.column_name AS parent_col
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
   AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
    ON tc.constraint_name = ccu.constraint_name
   AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = 'public'
  AND ccu.table_name = $1
ORDER BY tc.table_name, kcu.column_name
`

const parentsOfQuery = `
SELECT
    ccu.table_name  AS parent_table,
    kcu.column_name AS child_col,
    ccu.column_name AS parent_col
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
   AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
    ON tc.constraint_name = ccu.constraint_name
   AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = 'public'
  AND tc.table_name = $1
ORDER BY ccu.table_name, kcu.column_name
`

const columnsOfQuery = `
SELECT column_name, is_nullable, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
  AND table_name = $1
ORDER BY ordinal_position
`

// ChildrenOf returns, for every foreign key that references table, the
// referencing table and the two columns involved. Self-referential foreign
// keys (table referencing itself) are included and must be handled by the
// caller.
func (i *Introspector) ChildrenOf(ctx context.Context, table string) ([]graph.FKEdge, error) {
	rows, err := i.db.QueryContext(ctx, childrenOfQuery, table)
	if err != nil {
		return nil, fmt.Errorf("introspect: children of %q: %w", table, err)
	}
	defer rows.Close()

	var edges []graph.FKEdge
	for rows.Next() {
		var e graph.FKEdge
		if err := rows.Scan(&e.Table, &e.ChildCol, &e.ParentCol); err != nil {
			return nil, fmt.Errorf("introspect: scan children of %q: %w", table, err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect: children of %q: %w", table, err)
	}
	return edges, nil
}

// ParentsOf returns, for every foreign key table owns, the referenced table
// and the two columns involved.
func (i *Introspector) ParentsOf(ctx context.Context, table string) ([]graph.FKEdge, error) {
	rows, err := i.db.QueryContext(ctx, parentsOfQuery, table)
	if err != nil {
		return nil, fmt.Errorf("introspect: parents of %q: %w", table, err)
	}
	defer rows.Close()

	var edges []graph.FKEdge
	for rows.Next() {
		var e graph.FKEdge
		if err := rows.Scan(&e.Table, &e.ChildCol, &e.ParentCol); err != nil {
			return nil, fmt.Errorf("introspect: scan parents of %q: %w", table, err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect: parents of %q: %w", table, err)
	}
	return edges, nil
}

// ColumnsOf returns every column of table, keyed by column name.
func (i *Introspector) ColumnsOf(ctx context.Context, table string) (map[string]graph.ColumnInfo, error) {
	rows, err := i.db.QueryContext(ctx, columnsOfQuery, table)
	if err != nil {
		return nil, fmt.Errorf("introspect: columns of %q: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]graph.ColumnInfo)
	for rows.Next() {
		var name, nullable, dataType string
		if err := rows.Scan(&name, &nullable, &dataType); err != nil {
			return nil, fmt.Errorf("introspect: scan columns of %q: %w", table, err)
		}
		cols[name] = graph.ColumnInfo{
			Name:     name,
			Nullable: nullable == "YES",
			DataType: dataType,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect: columns of %q: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("introspect: table %q not found in schema public", table)
	}
	return cols, nil
}
