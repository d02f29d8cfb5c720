package cloudformation

import (
	"fmt"
	"sort"

	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/sanitization"
	"github.com/iancoleman/strcase"
)

// LogicalIds names every resource of g within its template. Names are the CamelCase resource name;
// when two resources of different types share a name, both are prefixed with their type.
func LogicalIds(g construct.Graph) (map[construct.ResourceId]string, error) {
	resources, err := construct.Resources(g)
	if err != nil {
		return nil, err
	}
	ids := make([]construct.ResourceId, len(resources))
	for i, r := range resources {
		ids[i] = r.ID
	}
	sort.Slice(ids, func(i, j int) bool { return construct.ResourceIdLess(ids[i], ids[j]) })

	byName := make(map[string]int)
	for _, id := range ids {
		byName[logicalName(id.Name)]++
	}

	result := make(map[construct.ResourceId]string, len(ids))
	used := make(map[string]construct.ResourceId, len(ids))
	for _, id := range ids {
		name := logicalName(id.Name)
		if byName[name] > 1 {
			name = logicalName(id.Type) + name
		}
		if name == "" {
			return nil, fmt.Errorf("%s has no usable logical id", id)
		}
		if other, ok := used[name]; ok {
			return nil, fmt.Errorf("%s and %s both have logical id %s", other, id, name)
		}
		used[name] = id
		result[id] = name
	}
	return result, nil
}

func logicalName(s string) string {
	return strcase.ToCamel(sanitization.LogicalIdSanitizer.Apply(s))
}
