package construct

import (
	"fmt"
	"strconv"
	"strings"
)

type Properties map[string]any

func splitPath(path string) []string {
	var parts []string
	var delim string
	for path != "" {
		partIdx := strings.IndexAny(path, ".[")
		var part string
		if partIdx == -1 {
			part = delim + path
			path = ""
		} else {
			part = delim + path[:partIdx]
			delim = path[partIdx : partIdx+1]
			path = path[partIdx+1:]
		}
		parts = append(parts, part)
	}
	return parts
}

type PropertyPathError struct {
	Path  []string
	Cause error
}

func (e *PropertyPathError) Error() string {
	return fmt.Sprintf("error in path %s: %v",
		strings.Join(e.Path, ""),
		e.Cause,
	)
}

func (e *PropertyPathError) Unwrap() error {
	return e.Cause
}

func asMap(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case Properties:
		return v, true
	case map[string]any:
		return v, true
	}
	return nil, false
}

func parseIndex(part string) (int, error) {
	if len(part) < 3 || part[0] != '[' || part[len(part)-1] != ']' {
		return 0, fmt.Errorf("invalid array index format, got %q", part)
	}
	return strconv.Atoi(part[1 : len(part)-1])
}

// GetProperty returns the value at path (such as `Tags[0].Key`), or nil when any part of the path is unset.
func (r *Resource) GetProperty(path string) (any, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	var value any = r.Properties
	for i, part := range parts {
		if value == nil {
			return nil, nil
		}
		if part[0] == '[' {
			idx, err := parseIndex(part)
			if err != nil {
				return nil, &PropertyPathError{Path: parts[:i+1], Cause: err}
			}
			list, ok := value.([]any)
			if !ok {
				return nil, &PropertyPathError{Path: parts[:i], Cause: fmt.Errorf("expected array, got %T", value)}
			}
			if idx < 0 || idx >= len(list) {
				return nil, &PropertyPathError{
					Path:  parts[:i+1],
					Cause: fmt.Errorf("array index out of bounds: %d (length %d)", idx, len(list)),
				}
			}
			value = list[idx]
			continue
		}
		m, ok := asMap(value)
		if !ok {
			return nil, &PropertyPathError{Path: parts[:i], Cause: fmt.Errorf("expected map, got %T", value)}
		}
		value = m[strings.TrimPrefix(part, ".")]
	}
	return value, nil
}

// SetProperty sets the value at path, creating any intermediate maps that do not exist yet.
// Array indices must already exist.
func (r *Resource) SetProperty(path string, value any) error {
	if r.Properties == nil {
		r.Properties = make(Properties)
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("empty path")
	}
	var container any = r.Properties
	for i, part := range parts {
		last := i == len(parts)-1
		if part[0] == '[' {
			idx, err := parseIndex(part)
			if err != nil {
				return &PropertyPathError{Path: parts[:i+1], Cause: err}
			}
			list, ok := container.([]any)
			if !ok {
				return &PropertyPathError{Path: parts[:i], Cause: fmt.Errorf("expected array, got %T", container)}
			}
			if idx < 0 || idx >= len(list) {
				return &PropertyPathError{
					Path:  parts[:i+1],
					Cause: fmt.Errorf("array index out of bounds: %d (length %d)", idx, len(list)),
				}
			}
			if last {
				list[idx] = value
				return nil
			}
			if list[idx] == nil {
				list[idx] = make(map[string]any)
			}
			container = list[idx]
			continue
		}
		m, ok := asMap(container)
		if !ok {
			return &PropertyPathError{Path: parts[:i], Cause: fmt.Errorf("expected map, got %T", container)}
		}
		key := strings.TrimPrefix(part, ".")
		if last {
			m[key] = value
			return nil
		}
		next, exists := m[key]
		if !exists || next == nil {
			next = make(map[string]any)
			m[key] = next
		}
		container = next
	}
	return nil
}

// AppendProperty appends value to the list at path, creating the list if it is unset.
func (r *Resource) AppendProperty(path string, value any) error {
	current, err := r.GetProperty(path)
	if err != nil {
		return err
	}
	if current == nil {
		return r.SetProperty(path, []any{value})
	}
	list, ok := current.([]any)
	if !ok {
		return &PropertyPathError{Path: splitPath(path), Cause: fmt.Errorf("expected array, got %T", current)}
	}
	return r.SetProperty(path, append(list, value))
}

// RemoveProperty deletes the key at path. Removing an unset key is a no-op.
func (r *Resource) RemoveProperty(path string) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("empty path")
	}
	last := parts[len(parts)-1]
	if last[0] == '[' {
		return &PropertyPathError{Path: parts, Cause: fmt.Errorf("cannot remove an array index")}
	}
	parent := any(r.Properties)
	if len(parts) > 1 {
		p, err := r.GetProperty(strings.Join(parts[:len(parts)-1], ""))
		if err != nil {
			return err
		}
		parent = p
	}
	if parent == nil {
		return nil
	}
	m, ok := asMap(parent)
	if !ok {
		return &PropertyPathError{Path: parts[:len(parts)-1], Cause: fmt.Errorf("expected map, got %T", parent)}
	}
	delete(m, strings.TrimPrefix(last, "."))
	return nil
}
