package aws

import (
	"errors"
	"fmt"

	"github.com/grace-platform/grace/pkg/construct"
)

const AWS_PROVIDER = "aws"

// Builder declares resources into one stack's graph. Every constructor returns the new resource's id;
// failures are collected and reported once by [Builder.Err] so stack definitions read top to bottom.
type Builder struct {
	graph construct.Graph
	stack string
	errs  error
}

func NewBuilder(g construct.Graph, stack string) *Builder {
	return &Builder{graph: g, stack: stack}
}

func (b *Builder) Stack() string {
	return b.stack
}

func (b *Builder) Graph() construct.Graph {
	return b.graph
}

// Id returns the id a resource of the given type and name has in this stack.
func (b *Builder) Id(typ, name string) construct.ResourceId {
	return construct.ResourceId{Provider: AWS_PROVIDER, Type: typ, Namespace: b.stack, Name: name}
}

// Add declares a resource with the given properties. Dependencies on resources in the same stack are
// derived from references in the properties.
func (b *Builder) Add(typ, name string, props construct.Properties) construct.ResourceId {
	id := b.Id(typ, name)
	if props == nil {
		props = make(construct.Properties)
	}
	if err := construct.AddResource(b.graph, &construct.Resource{ID: id, Properties: props}); err != nil {
		b.errs = errors.Join(b.errs, err)
	}
	return id
}

// DependsOn adds an ordering dependency that no property expresses.
func (b *Builder) DependsOn(dependent construct.ResourceId, dependencies ...construct.ResourceId) {
	for _, dep := range dependencies {
		if err := b.graph.AddEdge(dependent, dep); err != nil {
			b.errs = errors.Join(b.errs, fmt.Errorf("could not add dependency %s -> %s: %w", dependent, dep, err))
		}
	}
}

// SetProperty sets a property on an already declared resource.
func (b *Builder) SetProperty(id construct.ResourceId, path string, value any) {
	r, err := b.graph.Vertex(id)
	if err == nil {
		err = r.SetProperty(path, value)
	}
	if err == nil {
		err = construct.AddReferenceEdges(b.graph, r)
	}
	if err != nil {
		b.errs = errors.Join(b.errs, fmt.Errorf("could not set %s on %s: %w", path, id, err))
	}
}

// AppendProperty appends to a list property on an already declared resource.
func (b *Builder) AppendProperty(id construct.ResourceId, path string, value any) {
	r, err := b.graph.Vertex(id)
	if err == nil {
		err = r.AppendProperty(path, value)
	}
	if err == nil {
		err = construct.AddReferenceEdges(b.graph, r)
	}
	if err != nil {
		b.errs = errors.Join(b.errs, fmt.Errorf("could not append to %s on %s: %w", path, id, err))
	}
}

// Err returns every error encountered while declaring resources.
func (b *Builder) Err() error {
	return b.errs
}

func ref(id construct.ResourceId, property string) construct.PropertyRef {
	return construct.PropertyRef{Resource: id, Property: property}
}

// Arn refers to a resource's ARN attribute.
func Arn(id construct.ResourceId) construct.PropertyRef {
	return ref(id, "Arn")
}

func ids(list []construct.ResourceId) []any {
	out := make([]any, len(list))
	for i, id := range list {
		out[i] = id
	}
	return out
}

// Tag is a single key/value tag in the list form used by most resource types.
func Tag(key string, value any) map[string]any {
	return map[string]any{"Key": key, "Value": value}
}

// NameTag is the `Name` tag the console shows for EC2 resources.
func (b *Builder) NameTag(name string) []any {
	return []any{Tag("Name", b.stack+"/"+name)}
}
