// Package intrinsic declares the CloudFormation intrinsic functions that may appear in resource
// properties. Values are plain data; the template translator renders them and resolves any
// references they contain.
package intrinsic

import "github.com/grace-platform/grace/pkg/construct"

type (
	// Join renders as `Fn::Join`.
	Join struct {
		Delimiter string
		Values    []any
	}

	// Sub renders as `Fn::Sub`. Vars may hold references, which become the variable map.
	Sub struct {
		Template string
		Vars     map[string]any
	}

	// Pseudo is a pseudo parameter such as `AWS::Region`.
	Pseudo string

	// Select renders as `Fn::Select`.
	Select struct {
		Index int
		List  any
	}

	// GetAZs renders as `Fn::GetAZs` for the stack's region.
	GetAZs struct{}

	// Cidr renders as `Fn::Cidr`.
	Cidr struct {
		IpBlock  any
		Count    int
		CidrBits int
	}

	// ImportValue renders as `Fn::ImportValue` of an export declared outside of this application.
	ImportValue struct {
		Name any
	}

	// Literal wraps a value that must be emitted as-is, such as a nested document that happens to
	// contain a key the translator would otherwise interpret.
	Literal struct {
		Value any
	}
)

const (
	AccountId Pseudo = "AWS::AccountId"
	Region    Pseudo = "AWS::Region"
	Partition Pseudo = "AWS::Partition"
	StackName Pseudo = "AWS::StackName"
	StackId   Pseudo = "AWS::StackId"
	URLSuffix Pseudo = "AWS::URLSuffix"
	NoValue   Pseudo = "AWS::NoValue"
)

func (j Join) WalkValues(fn func(v any) error) error {
	for _, v := range j.Values {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (s Sub) WalkValues(fn func(v any) error) error {
	for _, v := range s.Vars {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (s Select) WalkValues(fn func(v any) error) error {
	return fn(s.List)
}

func (c Cidr) WalkValues(fn func(v any) error) error {
	return fn(c.IpBlock)
}

func (i ImportValue) WalkValues(fn func(v any) error) error {
	return fn(i.Name)
}

// Arn builds `arn:${AWS::Partition}:<service>:<region>:<account>:<resource>`. Non-regional ARNs
// leave region and account empty, as S3 bucket ARNs do.
func Arn(service string, regional bool, resource ...any) Join {
	values := []any{"arn:", Partition, ":" + service + ":"}
	if regional {
		values = append(values, Region, ":", AccountId, ":")
	} else {
		values = append(values, "::")
	}
	values = append(values, resource...)
	return Join{Values: values}
}

// PropertyOf is shorthand for a [construct.PropertyRef].
func PropertyOf(id construct.ResourceId, property string) construct.PropertyRef {
	return construct.PropertyRef{Resource: id, Property: property}
}

var (
	_ construct.ValueWalker = Join{}
	_ construct.ValueWalker = Sub{}
	_ construct.ValueWalker = Select{}
	_ construct.ValueWalker = Cidr{}
	_ construct.ValueWalker = ImportValue{}
)
