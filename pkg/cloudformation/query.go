package cloudformation

import (
	"bytes"
	"fmt"

	"github.com/vmware-labs/yaml-jsonpath/pkg/yamlpath"
	"gopkg.in/yaml.v3"
)

// Query selects the parts of a template matched by a YAML JSONPath expression such as
// `$.Resources.GraceDataBucket.Properties`. Each match is returned as its own YAML document.
func Query(template []byte, path string) ([]string, error) {
	p, err := yamlpath.NewPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(template, &root); err != nil {
		return nil, fmt.Errorf("could not parse template: %w", err)
	}
	nodes, err := p.Find(&root)
	if err != nil {
		return nil, err
	}
	results := make([]string, 0, len(nodes))
	for _, n := range nodes {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		results = append(results, buf.String())
	}
	return results, nil
}
