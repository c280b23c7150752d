package graph

import (
	"context"
	"fmt"
)

// FKEdge describes one foreign-key relationship discovered between two
// tables: ChildCol (on the referencing table) points at ParentCol (on the
// referenced table, Table in this struct's context depends on which method
// returned it).
type FKEdge struct {
	Table     string
	ChildCol  string
	ParentCol string
}

// Schema is the subset of schema introspection the builder needs. It is
// satisfied by *introspect.Introspector; tests supply a fake.
type Schema interface {
	ChildrenOf(ctx context.Context, table string) ([]FKEdge, error)
	ParentsOf(ctx context.Context, table string) ([]FKEdge, error)
	ColumnsOf(ctx context.Context, table string) (map[string]ColumnInfo, error)
}

// Builder runs breadth-first discovery from a root table over live schema
// introspection, producing a fully populated State.
type Builder struct {
	schema Schema
}

// NewBuilder returns a Builder that queries schema for edges and columns.
func NewBuilder(schema Schema) *Builder {
	return &Builder{schema: schema}
}

// Build discovers every table reachable from root by following foreign keys
// in both directions and returns the populated State, with DirectDescendants
// marked during the walk and Outsiders left for Partition to fill in.
//
// The walk proceeds level by level. For each table T popped off the queue,
// T's columns are recorded first, then:
//  1. Children of T (tables whose FK references T) are fetched. Each such
//     child C contributes an edge child->parent (Deps[C] gets T, Inv[T] gets
//     C) and records C's FK column and T's referenced column in FKeys/
//     FKeyCols/InvFKeys. T's referenced column is added to T's own
//     TableFKeyNeeds (T needs to project the column C's FK points at), and
//     C's FK column to C's TableFKeyNeeds. If T is a direct descendant, C is
//     marked a direct descendant too, whether or not C was reached before.
//  2. Parents of T (tables T's own FK columns reference) are fetched. Each
//     such parent P is reached the same way but is NOT marked a direct
//     descendant by this step; it becomes one only if a children-of step
//     from a direct descendant also reaches it during this walk. Partition
//     later classifies every reached table left unmarked as an outsider.
//     Every first-time-reached table is still enqueued for its own BFS level
//     regardless of classification, since outsiders must be extracted too.
func (b *Builder) Build(ctx context.Context, root, rootID string) (*State, error) {
	if root == "" {
		return nil, fmt.Errorf("graph: root table is empty")
	}

	s := NewState(root, rootID)
	queue := []string{root}

	for len(queue) > 0 {
		table := queue[0]
		queue = queue[1:]

		cols, err := b.schema.ColumnsOf(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("graph: columns of %q: %w", table, err)
		}
		s.TableCols[table] = cols

		children, err := b.schema.ChildrenOf(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("graph: children of %q: %w", table, err)
		}
		for _, edge := range children {
			child := edge.Table
			isNew := s.markReached(child)
			if isNew {
				queue = append(queue, child)
			}

			s.addDep(child, table)
			s.addInv(table, child)
			s.setFKey(child, table, edge.ChildCol)
			s.setFKeyCol(table, edge.ChildCol, edge.ParentCol)

			s.addTableFKeyNeed(table, edge.ParentCol)
			s.addTableFKeyNeed(child, edge.ChildCol)

			if s.IsDirectDescendant(table) {
				addEdge(s.DirectDescendants, child)
			}
		}

		parents, err := b.schema.ParentsOf(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("graph: parents of %q: %w", table, err)
		}
		for _, edge := range parents {
			parent := edge.Table
			isNew := s.markReached(parent)
			if isNew {
				queue = append(queue, parent)
			}

			s.addDep(table, parent)
			s.addInv(parent, table)
			s.setFKey(table, parent, edge.ChildCol)
			s.setFKeyCol(parent, edge.ChildCol, edge.ParentCol)

			s.addTableFKeyNeed(parent, edge.ParentCol)
			s.addTableFKeyNeed(table, edge.ChildCol)
		}
	}

	return s, nil
}
