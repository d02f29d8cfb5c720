package cloudformation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/r3labs/diff"
)

// DiffTemplates returns the changes needed to go from old to new. A nil old template is treated as
// empty, so every resource and output of new is a CREATE.
func DiffTemplates(old, new *Template) (diff.Changelog, error) {
	oldMap, err := templateMap(old)
	if err != nil {
		return nil, fmt.Errorf("could not read previous template: %w", err)
	}
	newMap, err := templateMap(new)
	if err != nil {
		return nil, fmt.Errorf("could not read new template: %w", err)
	}
	differ, err := diff.NewDiffer(diff.SliceOrdering(false))
	if err != nil {
		return nil, err
	}
	return differ.Diff(oldMap, newMap)
}

// templateMap converts a template to its generic JSON form so that the differ compares the values as
// they are deployed, not as Go types.
func templateMap(t *Template) (map[string]any, error) {
	m := make(map[string]any)
	if t == nil {
		return m, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

var (
	createColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
	updateColor = color.New(color.FgYellow)
)

// WriteChangelog writes one line per change, prefixed by the stack name.
func WriteChangelog(w io.Writer, stack string, changes diff.Changelog) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintf(w, "%s: no changes\n", stack)
		return err
	}
	for _, c := range changes {
		path := strings.Join(c.Path, ".")
		var err error
		switch c.Type {
		case diff.CREATE:
			_, err = createColor.Fprintf(w, "%s: + %s: %s\n", stack, path, compact(c.To))
		case diff.DELETE:
			_, err = deleteColor.Fprintf(w, "%s: - %s: %s\n", stack, path, compact(c.From))
		case diff.UPDATE:
			_, err = updateColor.Fprintf(w, "%s: ~ %s: %s -> %s\n", stack, path, compact(c.From), compact(c.To))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func compact(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
