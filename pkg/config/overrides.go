package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// overrideAliases maps context keys kept for compatibility with existing deploy scripts to config keys.
var overrideAliases = map[string]string{
	"isProduction": "production",
}

// ApplyOverrides applies `key=value` overrides, as given to `-c`. Keys use the config file's
// snake_case names, with dots for nested settings (`database.instance_class=db.t3.medium`).
// Values are converted to the field's type, so `production=true` and `network.max_azs=3` work.
func (cfg *Application) ApplyOverrides(overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}
	raw := make(map[string]any)
	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q, expected key=value", o)
		}
		if alias, ok := overrideAliases[key]; ok {
			key = alias
		}
		if err := setPath(raw, strings.Split(key, "."), value); err != nil {
			return fmt.Errorf("invalid override %q: %w", o, err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("could not apply overrides: %w", err)
	}
	return nil
}

func setPath(m map[string]any, path []string, value string) error {
	key := path[0]
	if len(path) == 1 {
		if _, isMap := m[key].(map[string]any); isMap {
			return fmt.Errorf("%q is a section, not a value", key)
		}
		m[key] = value
		return nil
	}
	child, ok := m[key]
	if !ok {
		child = make(map[string]any)
		m[key] = child
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("%q is a value, not a section", key)
	}
	return setPath(childMap, path[1:], value)
}
