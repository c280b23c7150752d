package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(order []string, table string) int {
	for i, t := range order {
		if t == table {
			return i
		}
	}
	return -1
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	s := NewState("a", "1")
	s.Deps["b"] = newEdgeSet()
	addEdge(s.Deps["b"], "a")
	s.Inv["a"] = newEdgeSet()
	addEdge(s.Inv["a"], "b")
	addEdge(s.Reached, "b")

	s.Deps["c"] = newEdgeSet()
	addEdge(s.Deps["c"], "b")
	s.Inv["b"] = newEdgeSet()
	addEdge(s.Inv["b"], "c")
	addEdge(s.Reached, "c")

	order, err := TopologicalSort(s)
	require.NoError(t, err)
	assert.Less(t, indexOf(order, "a"), indexOf(order, "b"))
	assert.Less(t, indexOf(order, "b"), indexOf(order, "c"))
}

func TestTopologicalSort_SelfReferentialEdgeTolerated(t *testing.T) {
	s := NewState("categories", "1")
	s.Deps["categories"] = newEdgeSet()
	addEdge(s.Deps["categories"], "categories")

	order, err := TopologicalSort(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"categories"}, order)
}

func TestTopologicalSort_CycleDetected(t *testing.T) {
	s := NewState("a", "1")
	addEdge(s.Reached, "b")

	s.Deps["a"] = newEdgeSet()
	addEdge(s.Deps["a"], "b")
	s.Inv["b"] = newEdgeSet()
	addEdge(s.Inv["b"], "a")

	s.Deps["b"] = newEdgeSet()
	addEdge(s.Deps["b"], "a")
	s.Inv["a"] = newEdgeSet()
	addEdge(s.Inv["a"], "b")

	_, err := TopologicalSort(s)
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, 2, cycleErr.Info.TotalNodes)
	assert.Equal(t, 0, cycleErr.Info.ProcessedNodes)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Info.CycleParticipants)
	assert.Contains(t, cycleErr.Error(), "cycle detected")
}

func TestOutsiderTopologicalSort_RestrictsToOutsiderSubgraph(t *testing.T) {
	s := NewState("root", "1")
	addEdge(s.Reached, "shippers")
	addEdge(s.Reached, "warehouses")
	addEdge(s.Outsiders, "shippers")
	addEdge(s.Outsiders, "warehouses")

	// warehouses depends on shippers, but root also depends on shippers --
	// the restriction must drop the edge to root since it is not an outsider.
	s.Deps["warehouses"] = newEdgeSet()
	addEdge(s.Deps["warehouses"], "shippers")
	s.Inv["shippers"] = newEdgeSet()
	addEdge(s.Inv["shippers"], "warehouses")

	s.Deps["root"] = newEdgeSet()
	addEdge(s.Deps["root"], "shippers")

	order, err := OutsiderTopologicalSort(s)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shippers", "warehouses"}, order)
	assert.Less(t, indexOf(order, "shippers"), indexOf(order, "warehouses"))
}

func TestOutsiderTopologicalSort_EmptyOutsiders(t *testing.T) {
	s := NewState("root", "1")
	order, err := OutsiderTopologicalSort(s)
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestCycleError_ErrorMessage_ReportsBlockedTables(t *testing.T) {
	s := NewState("a", "1")
	addEdge(s.Reached, "b")
	addEdge(s.Reached, "c")

	// a <-> b cycle; c depends on b so it is blocked but not a cycle
	// participant itself.
	s.Deps["a"] = newEdgeSet()
	addEdge(s.Deps["a"], "b")
	s.Inv["b"] = newEdgeSet()
	addEdge(s.Inv["b"], "a")

	s.Deps["b"] = newEdgeSet()
	addEdge(s.Deps["b"], "a")
	s.Inv["a"] = newEdgeSet()
	addEdge(s.Inv["a"], "b")

	s.Deps["c"] = newEdgeSet()
	addEdge(s.Deps["c"], "b")
	if s.Inv["b"] == nil {
		s.Inv["b"] = newEdgeSet()
	}
	addEdge(s.Inv["b"], "c")

	_, err := TopologicalSort(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by cycle")
}
