// Package graph builds and orders the foreign-key dependency graph reached
// by breadth-first discovery from a single root table.
package graph

import "github.com/elliotchance/orderedmap/v2"

// ColumnInfo describes one column of a reached table.
type ColumnInfo struct {
	Name     string
	Nullable bool
	DataType string
}

// edgeSet is an insertion-ordered set of table or column names. Ordering
// matters here: a table's needed-FK columns must be written to a parsed CSV
// header in a stable order, and the same discipline keeps WHERE-clause
// disjunctions and graph-info.txt reproducible between runs.
type edgeSet = orderedmap.OrderedMap[string, struct{}]

func newEdgeSet() *edgeSet {
	return orderedmap.NewOrderedMap[string, struct{}]()
}

func addEdge(set *edgeSet, name string) {
	if _, ok := set.Get(name); !ok {
		set.Set(name, struct{}{})
	}
}

func edgeSetKeys(set *edgeSet) []string {
	if set == nil {
		return nil
	}
	out := make([]string, 0, set.Len())
	for el := set.Front(); el != nil; el = el.Next() {
		out = append(out, el.Key)
	}
	return out
}

// State bundles every per-table map the engine builds during graph
// discovery into a single owned value, passed explicitly between phases
// rather than kept as package-level mutable state.
type State struct {
	Root   string
	RootID string

	Reached *edgeSet

	// Deps[table] = set of tables that table directly references.
	Deps map[string]*edgeSet
	// Inv[table] = set of tables that directly reference table.
	Inv map[string]*edgeSet

	// FKeyCols[parent][childCol] = parentCol: the column of parent that
	// childCol (a column of some child referencing parent) points at.
	FKeyCols map[string]map[string]string
	// FKeys[child][parent] = childCol: the column of child used to
	// reference parent.
	FKeys map[string]map[string]string
	// InvFKeys[parent][child] = childCol, the same fact as FKeys[child][parent]
	// viewed from the parent's side; kept distinct because the outsider
	// WHERE-clause construction is phrased in terms of it.
	InvFKeys map[string]map[string]string

	// TableFKeyNeeds[table] = ordered set of columns of table that must
	// survive into its parsed projection CSV: columns other tables
	// reference, plus table's own outward-pointing FK columns.
	TableFKeyNeeds map[string]*edgeSet

	TableCols map[string]map[string]ColumnInfo

	DirectDescendants *edgeSet
	Outsiders         *edgeSet
}

// NewState returns an empty State rooted at root/rootID.
func NewState(root, rootID string) *State {
	s := &State{
		Root:              root,
		RootID:            rootID,
		Reached:           newEdgeSet(),
		Deps:              make(map[string]*edgeSet),
		Inv:               make(map[string]*edgeSet),
		FKeyCols:          make(map[string]map[string]string),
		FKeys:             make(map[string]map[string]string),
		InvFKeys:          make(map[string]map[string]string),
		TableFKeyNeeds:    make(map[string]*edgeSet),
		TableCols:         make(map[string]map[string]ColumnInfo),
		DirectDescendants: newEdgeSet(),
		Outsiders:         newEdgeSet(),
	}
	addEdge(s.Reached, root)
	addEdge(s.DirectDescendants, root)
	return s
}

func (s *State) markReached(table string) (isNew bool) {
	if _, ok := s.Reached.Get(table); ok {
		return false
	}
	addEdge(s.Reached, table)
	return true
}

func (s *State) addDep(child, parent string) {
	if s.Deps[child] == nil {
		s.Deps[child] = newEdgeSet()
	}
	addEdge(s.Deps[child], parent)
}

func (s *State) addInv(parent, child string) {
	if s.Inv[parent] == nil {
		s.Inv[parent] = newEdgeSet()
	}
	addEdge(s.Inv[parent], child)
}

func (s *State) setFKeyCol(parent, childCol, parentCol string) {
	if s.FKeyCols[parent] == nil {
		s.FKeyCols[parent] = make(map[string]string)
	}
	s.FKeyCols[parent][childCol] = parentCol
}

func (s *State) setFKey(child, parent, childCol string) {
	if s.FKeys[child] == nil {
		s.FKeys[child] = make(map[string]string)
	}
	s.FKeys[child][parent] = childCol

	if s.InvFKeys[parent] == nil {
		s.InvFKeys[parent] = make(map[string]string)
	}
	s.InvFKeys[parent][child] = childCol
}

func (s *State) addTableFKeyNeed(table, col string) {
	if s.TableFKeyNeeds[table] == nil {
		s.TableFKeyNeeds[table] = newEdgeSet()
	}
	addEdge(s.TableFKeyNeeds[table], col)
}

// IsDirectDescendant reports set membership per the explicit-membership
// resolution of the outsider-classification open question.
func (s *State) IsDirectDescendant(table string) bool {
	_, ok := s.DirectDescendants.Get(table)
	return ok
}

// IsOutsider reports set membership, symmetric with IsDirectDescendant.
func (s *State) IsOutsider(table string) bool {
	_, ok := s.Outsiders.Get(table)
	return ok
}

// ReachedTables returns the reached table set in discovery order.
func (s *State) ReachedTables() []string {
	return edgeSetKeys(s.Reached)
}

// DepsOf returns the tables table directly references, in discovery order.
func (s *State) DepsOf(table string) []string {
	return edgeSetKeys(s.Deps[table])
}

// InvOf returns the tables that directly reference table, in discovery order.
func (s *State) InvOf(table string) []string {
	return edgeSetKeys(s.Inv[table])
}

// NeededColumns returns table's needed-FK column set in discovery order.
func (s *State) NeededColumns(table string) []string {
	return edgeSetKeys(s.TableFKeyNeeds[table])
}
