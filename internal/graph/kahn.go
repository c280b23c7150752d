package graph

import (
	"container/list"
	"fmt"
	"strings"
)

// processingQueue wraps a list-based FIFO queue for Kahn's algorithm.
type processingQueue struct {
	queue *list.List
}

func newProcessingQueue() *processingQueue {
	return &processingQueue{queue: list.New()}
}

func (pq *processingQueue) enqueue(node string) {
	pq.queue.PushBack(node)
}

func (pq *processingQueue) dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

func (pq *processingQueue) isEmpty() bool {
	return pq.queue.Len() == 0
}

// CycleInfo describes why Kahn's algorithm could not fully order a subgraph.
type CycleInfo struct {
	TotalNodes        int
	ProcessedNodes    int
	UnprocessedNodes  []string
	CycleParticipants []string
	CyclePath         []string
}

// CycleError is returned by TopologicalSort when the subgraph cannot be
// fully ordered; per spec §7 this is always treated as fatal.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in foreign-key graph: %d of %d tables could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\ncycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}
	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\ntables in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool, len(e.Info.CycleParticipants))
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}
		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}
		if len(blocked) > 0 {
			msg += fmt.Sprintf("\ntables blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

// inDegrees computes, for every table in tables, the number of distinct
// entries in deps[table] excluding table itself — a self-referential FK
// must not block its own table from reaching in-degree zero.
func inDegrees(tables []string, deps map[string]*edgeSet) map[string]int {
	inDegree := make(map[string]int, len(tables))
	for _, t := range tables {
		count := 0
		for _, parent := range edgeSetKeys(deps[t]) {
			if parent != t {
				count++
			}
		}
		inDegree[t] = count
	}
	return inDegree
}

// topologicalSort runs Kahn's algorithm over the subgraph restricted to
// tables, using deps as the in-degree source (deps[t] = tables t depends on)
// and inv as the forward edges to relax (inv[t] = tables that depend on t).
// Self-loops are tolerated by excluding table from its own in-degree count;
// they are otherwise ignored since relaxing t->t would be a no-op.
func topologicalSort(tables []string, deps, inv map[string]*edgeSet) ([]string, *CycleError) {
	tableSet := make(map[string]bool, len(tables))
	for _, t := range tables {
		tableSet[t] = true
	}

	inDegree := inDegrees(tables, deps)

	queue := newProcessingQueue()
	for _, t := range tables {
		if inDegree[t] == 0 {
			queue.enqueue(t)
		}
	}

	order := make([]string, 0, len(tables))
	for !queue.isEmpty() {
		node, _ := queue.dequeue()
		order = append(order, node)

		for _, dependent := range edgeSetKeys(inv[node]) {
			if dependent == node || !tableSet[dependent] {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue.enqueue(dependent)
			}
		}
	}

	if len(order) == len(tables) {
		return order, nil
	}

	return nil, buildCycleError(tables, order, deps)
}

func buildCycleError(tables, processed []string, deps map[string]*edgeSet) *CycleError {
	processedSet := make(map[string]bool, len(processed))
	for _, p := range processed {
		processedSet[p] = true
	}

	var unprocessed []string
	unprocessedSet := make(map[string]bool)
	for _, t := range tables {
		if !processedSet[t] {
			unprocessed = append(unprocessed, t)
			unprocessedSet[t] = true
		}
	}

	var participants []string
	for _, t := range unprocessed {
		if canReachSelf(t, unprocessedSet, deps) {
			participants = append(participants, t)
		}
	}

	var cyclePath []string
	if len(participants) > 0 {
		cyclePath = findCyclePath(participants[0], unprocessedSet, deps)
	}

	return &CycleError{Info: &CycleInfo{
		TotalNodes:        len(tables),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: participants,
		CyclePath:         cyclePath,
	}}
}

// canReachSelf walks deps edges (table -> tables it depends on) looking for
// a path back to start, restricted to allowed.
func canReachSelf(start string, allowed map[string]bool, deps map[string]*edgeSet) bool {
	visited := make(map[string]bool)
	return dfsCanReach(start, start, visited, allowed, true, deps)
}

func dfsCanReach(current, target string, visited, allowed map[string]bool, isStart bool, deps map[string]*edgeSet) bool {
	if current == target && !isStart {
		return true
	}
	if visited[current] || !allowed[current] {
		return false
	}
	visited[current] = true

	for _, next := range edgeSetKeys(deps[current]) {
		if dfsCanReach(next, target, visited, allowed, false, deps) {
			return true
		}
	}
	return false
}

func findCyclePath(start string, allowed map[string]bool, deps map[string]*edgeSet) []string {
	visited := make(map[string]bool)
	path := []string{start}
	if dfsFindPath(start, start, visited, allowed, deps, &path) {
		return path
	}
	return nil
}

func dfsFindPath(current, target string, visited, allowed map[string]bool, deps map[string]*edgeSet, path *[]string) bool {
	for _, next := range edgeSetKeys(deps[current]) {
		if !allowed[next] {
			continue
		}
		if next == target {
			*path = append(*path, target)
			return true
		}
		if visited[next] {
			continue
		}
		visited[next] = true
		*path = append(*path, next)
		if dfsFindPath(next, target, visited, allowed, deps, path) {
			return true
		}
		*path = (*path)[:len(*path)-1]
	}
	return false
}

// TopologicalSort produces the global order L: parents before children,
// i.e. if deps[a] contains b then b precedes a in the result.
func TopologicalSort(s *State) ([]string, error) {
	order, cycleErr := topologicalSort(s.ReachedTables(), s.Deps, s.Inv)
	if cycleErr != nil {
		return nil, cycleErr
	}
	return order, nil
}

// OutsiderTopologicalSort produces L_outsiders, restricted to the outsider
// subgraph. Per the resolved "fresh copies" open question, depsOutsiders and
// invOutsiders are built fresh from the original s.Deps/s.Inv, keeping only
// edges whose endpoints are both outsiders. topologicalSort above keeps its
// own in-degree counts and does not mutate its inputs, so the first, global
// run leaves s.Deps/s.Inv intact; the restriction is computed from those
// edges, not derived from the global order.
func OutsiderTopologicalSort(s *State) ([]string, error) {
	outsiders := edgeSetKeys(s.Outsiders)
	outsiderSet := make(map[string]bool, len(outsiders))
	for _, t := range outsiders {
		outsiderSet[t] = true
	}

	depsOutsiders := make(map[string]*edgeSet, len(outsiders))
	invOutsiders := make(map[string]*edgeSet, len(outsiders))
	for _, t := range outsiders {
		restricted := newEdgeSet()
		for _, parent := range edgeSetKeys(s.Deps[t]) {
			if outsiderSet[parent] {
				addEdge(restricted, parent)
			}
		}
		depsOutsiders[t] = restricted

		restrictedInv := newEdgeSet()
		for _, child := range edgeSetKeys(s.Inv[t]) {
			if outsiderSet[child] {
				addEdge(restrictedInv, child)
			}
		}
		invOutsiders[t] = restrictedInv
	}

	order, cycleErr := topologicalSort(outsiders, depsOutsiders, invOutsiders)
	if cycleErr != nil {
		return nil, cycleErr
	}
	return order, nil
}
