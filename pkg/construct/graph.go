package construct

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

type (
	Graph = graph.Graph[ResourceId, *Resource]
	Edge  = graph.Edge[ResourceId]
)

// NewGraph returns an empty acyclic graph. Edges point from a resource to the resources it depends on.
func NewGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	))
}

// AddResource adds r to g along with an edge to every resource in g that r references. References
// to resources outside of g are left for the caller to resolve.
func AddResource(g Graph, r *Resource) error {
	if err := g.AddVertex(r); err != nil {
		return fmt.Errorf("could not add %s: %w", r.ID, err)
	}
	return AddReferenceEdges(g, r)
}

// AddReferenceEdges adds any missing dependency edges implied by r's property references.
func AddReferenceEdges(g Graph, r *Resource) error {
	var errs error
	for _, ref := range r.References().Sorted(ResourceIdLess) {
		if _, err := g.Vertex(ref); errors.Is(err, graph.ErrVertexNotFound) {
			continue
		} else if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		err := g.AddEdge(r.ID, ref)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			errs = errors.Join(errs, fmt.Errorf("could not add dependency %s -> %s: %w", r.ID, ref, err))
		}
	}
	return errs
}

// Resources returns every resource in g in stable topological order.
func Resources(g Graph) ([]*Resource, error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	resources := make([]*Resource, 0, len(topo))
	for _, id := range topo {
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, nil
}

func Hash(g Graph) ([]byte, error) {
	sum := sha256.New()
	err := stringTo(g, sum)
	return sum.Sum(nil), err
}

func String(g Graph) (string, error) {
	w := new(strings.Builder)
	err := stringTo(g, w)
	return w.String(), err
}

func stringTo(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	for _, id := range topo {
		_, err := fmt.Fprintf(w, "%s\n", id)
		if err != nil {
			return err
		}

		targets := make([]ResourceId, 0, len(adjacent[id]))
		for t := range adjacent[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))

		for _, t := range targets {
			// Adjacent edges always have `id` as the source, so just write the target.
			_, err := fmt.Fprintf(w, "-> %s\n", t)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
