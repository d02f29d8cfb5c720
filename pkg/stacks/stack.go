package stacks

import (
	"errors"
	"fmt"

	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
	"github.com/grace-platform/grace/pkg/set"
)

type (
	// Stack is one deployable unit. Resources are declared through the embedded builder; any reference
	// to a resource in another stack makes this stack depend on that one.
	Stack struct {
		*aws.Builder

		Name        string
		Description string
		Outputs     []Output
		// Tags apply to every taggable resource in the stack. A resource's own tags take precedence.
		Tags map[string]string

		dependencies set.Set[string]
	}

	Output struct {
		Name        string
		Value       any
		Description string
		// ExportName publishes the value under a fixed name for use outside of the application.
		ExportName string
	}
)

func NewStack(name, description string) *Stack {
	return &Stack{
		Builder:      aws.NewBuilder(construct.NewGraph(), name),
		Name:         name,
		Description:  description,
		Tags:         make(map[string]string),
		dependencies: make(set.Set[string]),
	}
}

func (s *Stack) AddOutput(name string, value any, description string) {
	s.Outputs = append(s.Outputs, Output{Name: name, Value: value, Description: description})
}

func (s *Stack) AddExport(name string, value any, description, exportName string) {
	s.Outputs = append(s.Outputs, Output{Name: name, Value: value, Description: description, ExportName: exportName})
}

// AddDependency makes s deploy after other even when no resource reference says so.
func (s *Stack) AddDependency(other *Stack) {
	s.dependencies.Add(other.Name)
}

// Dependencies returns the sorted names of the stacks that s must be deployed after.
func (s *Stack) Dependencies() ([]string, error) {
	deps := make(set.Set[string])
	deps.AddFrom(s.dependencies)
	collect := func(v any) error {
		var ns string
		switch v := v.(type) {
		case construct.ResourceId:
			ns = v.Namespace
		case construct.PropertyRef:
			ns = v.Resource.Namespace
		default:
			return nil
		}
		if ns != "" && ns != s.Name {
			deps.Add(ns)
		}
		return nil
	}
	resources, err := construct.Resources(s.Graph())
	if err != nil {
		return nil, fmt.Errorf("could not list resources of %s: %w", s.Name, err)
	}
	var errs error
	for _, r := range resources {
		if err := construct.WalkValues(r.Properties, collect); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not walk %s: %w", r.ID, err))
		}
	}
	for _, o := range s.Outputs {
		if err := construct.WalkValues(o.Value, collect); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not walk output %s of %s: %w", o.Name, s.Name, err))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return deps.Sorted(func(a, b string) bool { return a < b }), nil
}
