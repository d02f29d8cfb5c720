package construct

import (
	"reflect"

	"github.com/grace-platform/grace/pkg/set"
)

// Resource is a single declared cloud resource. Properties are kept in the shape the provisioning
// engine expects; any [ResourceId] or [PropertyRef] found in them is a dependency on another resource.
type Resource struct {
	ID         ResourceId
	Properties Properties
}

func CreateResource(id ResourceId) *Resource {
	return &Resource{
		ID:         id,
		Properties: make(Properties),
	}
}

// References returns every resource referenced from the properties, either directly by id or through
// a property reference.
func (r *Resource) References() set.Set[ResourceId] {
	refs := make(set.Set[ResourceId])
	_ = WalkValues(r.Properties, func(v any) error {
		switch v := v.(type) {
		case ResourceId:
			refs.Add(v)
		case PropertyRef:
			refs.Add(v.Resource)
		}
		return nil
	})
	refs.Remove(r.ID)
	return refs
}

// ValueWalker is implemented by composite property values (such as template intrinsics) that embed
// other values which may contain references.
type ValueWalker interface {
	WalkValues(fn func(v any) error) error
}

// WalkValues calls fn for `v` and, recursively, every value nested in maps, slices, and [ValueWalker]s.
func WalkValues(v any, fn func(v any) error) error {
	if v == nil {
		return nil
	}
	if err := fn(v); err != nil {
		return err
	}
	if w, ok := v.(ValueWalker); ok {
		return w.WalkValues(func(inner any) error {
			return WalkValues(inner, fn)
		})
	}
	switch v := v.(type) {
	case ResourceId, PropertyRef, string, bool, int, int64, float64:
		return nil
	case Properties:
		for _, val := range v {
			if err := WalkValues(val, fn); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, val := range v {
			if err := WalkValues(val, fn); err != nil {
				return err
			}
		}
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := WalkValues(iter.Value().Interface(), fn); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := WalkValues(rv.Index(i).Interface(), fn); err != nil {
				return err
			}
		}
	}
	return nil
}
