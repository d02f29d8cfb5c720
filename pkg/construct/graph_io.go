package construct

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type ioEdge struct {
	Source ResourceId
	Target ResourceId
}

func (e ioEdge) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Target)
}

func (e ioEdge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *ioEdge) UnmarshalText(data []byte) error {
	s := string(data)

	source, target, found := strings.Cut(s, " -> ")
	if !found {
		target, source, found = strings.Cut(s, " <- ")
		if !found {
			return errors.New("invalid edge format, expected either `source -> target` or `target <- source`")
		}
	}

	srcErr := e.Source.UnmarshalText([]byte(source))
	tgtErr := e.Target.UnmarshalText([]byte(target))
	return errors.Join(srcErr, tgtErr)
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// GraphToYAML renders the graph `g` as YAML to `w`. Resources are written in topological order,
// properties with sorted keys, so the output is stable between runs.
func GraphToYAML(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	var errs error
	resources := &yaml.Node{Kind: yaml.MappingNode}
	for _, rid := range topo {
		r, err := g.Vertex(rid)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		props := &yaml.Node{}
		if len(r.Properties) == 0 {
			props.Kind = yaml.MappingNode
		} else if err := props.Encode(r.Properties); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not encode %s: %w", rid, err))
			continue
		}
		resources.Content = append(resources.Content, scalar(rid.String()), props)
	}

	edges := &yaml.Node{Kind: yaml.MappingNode}
	for _, source := range topo {
		targets := make([]ResourceId, 0, len(adj[source]))
		for t := range adj[source] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))
		for _, target := range targets {
			edges.Content = append(edges.Content,
				scalar(ioEdge{Source: source, Target: target}.String()),
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"},
			)
		}
	}
	if errs != nil {
		return errs
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalar("resources"), resources,
			scalar("edges"), edges,
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// AddFromYAML reads a graph previously written by [GraphToYAML] into `g`. Property values are
// read back as plain YAML values: references are not restored.
func AddFromYAML(g Graph, r io.Reader) error {
	type graph struct {
		Resources map[ResourceId]Properties `yaml:"resources"`
		Edges     map[ioEdge]struct{}       `yaml:"edges"`
	}
	var y graph
	if err := yaml.NewDecoder(r).Decode(&y); err != nil {
		return err
	}

	var errs error
	for rid, props := range y.Resources {
		if props == nil {
			props = make(Properties)
		}
		err := g.AddVertex(&Resource{
			ID:         rid,
			Properties: props,
		})
		errs = errors.Join(errs, err)
	}
	for e := range y.Edges {
		err := g.AddEdge(e.Source, e.Target)
		errs = errors.Join(errs, err)
	}
	return errs
}
