package cloudformation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

const FormatVersion = "2010-09-09"

type (
	Template struct {
		AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
		Description              string               `json:"Description,omitempty"`
		Resources                map[string]*Resource `json:"Resources"`
		Outputs                  map[string]*Output   `json:"Outputs,omitempty"`
	}

	Resource struct {
		Type                string         `json:"Type"`
		Properties          map[string]any `json:"Properties,omitempty"`
		DependsOn           []string       `json:"DependsOn,omitempty"`
		DeletionPolicy      string         `json:"DeletionPolicy,omitempty"`
		UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty"`
	}

	Output struct {
		Value       any     `json:"Value"`
		Description string  `json:"Description,omitempty"`
		Export      *Export `json:"Export,omitempty"`
	}

	Export struct {
		Name any `json:"Name"`
	}

	// Format is the serialization of a template file.
	Format string
)

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown template format %q (expected json or yaml)", s)
}

// Extension is the file extension of templates in this format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Encode serializes t. Keys are sorted so that output is stable between runs.
func (t *Template) Encode(format Format) ([]byte, error) {
	return encode(t, format)
}

func encode(v any, format Format) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	switch format {
	case FormatYAML:
		return yaml.JSONToYAML(buf.Bytes())
	case FormatJSON, "":
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown template format %q", format)
}

// ParseTemplate reads a template in either JSON or YAML.
func ParseTemplate(data []byte) (*Template, error) {
	t := &Template{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("could not parse template: %w", err)
	}
	return t, nil
}
