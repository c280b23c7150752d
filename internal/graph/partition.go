package graph

import "fmt"

// Partition splits the reached table set into DirectDescendants (the root
// and every table discovered by following child-of edges from it) and
// Outsiders (everything else reached only through a parent-of edge — rows
// that must be extracted but whose own descendants are out of scope).
//
// Builder is expected to have already populated DirectDescendants during its
// BFS (a table is marked direct-descendant the moment it is reached via a
// "children of" step from another direct descendant). Partition only derives
// Outsiders from the complement and checks the two sets are disjoint, per
// the explicit-membership resolution of the outsider-classification open
// question.
func Partition(s *State) error {
	for _, table := range s.ReachedTables() {
		if !s.IsDirectDescendant(table) {
			addEdge(s.Outsiders, table)
		}
	}

	for _, table := range edgeSetKeys(s.Outsiders) {
		if s.IsDirectDescendant(table) {
			return fmt.Errorf("graph: table %q classified as both direct descendant and outsider", table)
		}
	}

	directCount := s.DirectDescendants.Len()
	outsiderCount := s.Outsiders.Len()
	reachedCount := s.Reached.Len()
	if directCount+outsiderCount != reachedCount {
		return fmt.Errorf("graph: partition is not a cover of reached tables (%d direct + %d outsider != %d reached)",
			directCount, outsiderCount, reachedCount)
	}

	return nil
}
