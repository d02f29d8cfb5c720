package construct

import (
	"sort"
)

// AllDownstreamDependencies returns all downstream dependencies of the given resource.
// Downstream means that for A -> B -> C -> D the downstream dependencies of B are [C, D].
func AllDownstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return allDependencies(adj, r), nil
}

// DirectDownstreamDependencies returns the direct downstream dependencies of the given resource.
// Direct means that for A -> B -> C -> D the direct downstream dependencies of B are [C].
func DirectDownstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(adj[r]), nil
}

// DirectUpstreamDependencies returns the direct upstream dependencies of the given resource.
// Direct means that for A -> B -> C -> D the direct upstream dependencies of C are [B].
func DirectUpstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	pred, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	return sortedKeys(pred[r]), nil
}

func sortedKeys(edges map[ResourceId]Edge) []ResourceId {
	ids := make([]ResourceId, 0, len(edges))
	for d := range edges {
		ids = append(ids, d)
	}
	sort.Sort(sortedIds(ids))
	return ids
}

func allDependencies(deps map[ResourceId]map[ResourceId]Edge, r ResourceId) []ResourceId {
	visited := make(map[ResourceId]struct{})
	stack := sortedKeys(deps[r])

	var ids []ResourceId
	for len(stack) > 0 {
		id := stack[0]
		stack = stack[1:]
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		ids = append(ids, id)

		for _, d := range sortedKeys(deps[id]) {
			if _, ok := visited[d]; !ok {
				stack = append(stack, d)
			}
		}
	}
	return ids
}
