package construct

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// GraphToDOT writes g in Graphviz DOT. Nodes are labelled with their type and name; references to
// resources outside g are drawn as dashed edges to external nodes.
func GraphToDOT(g Graph, name string, w io.Writer) error {
	resources, err := Resources(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}
	pw := &printfWriter{w: w}
	pw.printf("digraph %q {\n", name)
	pw.printf("  rankdir=%s\n", "RL")

	external := make(map[ResourceId]struct{})
	for _, r := range resources {
		pw.printf("  %q%s\n", r.ID.String(), dotAttributes(map[string]string{
			"label": r.ID.QualifiedTypeName() + `\n` + r.ID.Name,
			"shape": "box",
		}))
		for _, ref := range r.References().Sorted(ResourceIdLess) {
			if _, ok := adj[ref]; !ok {
				external[ref] = struct{}{}
			}
		}
	}
	extIds := make([]ResourceId, 0, len(external))
	for id := range external {
		extIds = append(extIds, id)
	}
	sort.Sort(sortedIds(extIds))
	for _, id := range extIds {
		pw.printf("  %q%s\n", id.String(), dotAttributes(map[string]string{
			"label": id.Namespace + `\n` + id.Name,
			"shape": "box",
			"style": "dashed",
		}))
	}

	for _, r := range resources {
		targets := make([]ResourceId, 0, len(adj[r.ID]))
		for t := range adj[r.ID] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))
		for _, t := range targets {
			pw.printf("  %q -> %q\n", r.ID.String(), t.String())
		}
		for _, ref := range r.References().Sorted(ResourceIdLess) {
			if _, ok := external[ref]; ok {
				pw.printf("  %q -> %q%s\n", r.ID.String(), ref.String(), dotAttributes(map[string]string{"style": "dashed"}))
			}
		}
	}
	pw.printf("}\n")
	return pw.err
}

// dotAttributes renders attribs in key order. Values wrapped in `<>` are HTML labels and are not quoted.
func dotAttributes(attribs map[string]string) string {
	if len(attribs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attribs))
	for k := range attribs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		v := attribs[k]
		if len(v) > 1 && v[0] == '<' && v[len(v)-1] == '>' {
			list = append(list, fmt.Sprintf(`%s=%s`, k, v))
		} else {
			list = append(list, fmt.Sprintf(`%s="%s"`, k, strings.ReplaceAll(v, `"`, `\"`)))
		}
	}
	return " [" + strings.Join(list, ", ") + "]"
}

type printfWriter struct {
	w   io.Writer
	err error
}

func (p *printfWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
