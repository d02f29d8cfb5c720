package knowledgebase

import (
	"fmt"
	"slices"
	"strings"

	"github.com/grace-platform/grace/pkg/construct"
)

type (
	// ResourceTemplate describes how a resource type is rendered into a CloudFormation template.
	ResourceTemplate struct {
		QualifiedTypeName  string `json:"qualified_type_name" yaml:"qualified_type_name"`
		CloudFormationType string `json:"cloudformation_type" yaml:"cloudformation_type"`

		// RefAttribute names the value `Ref` returns for this type. A [construct.PropertyRef] to it renders
		// as `Ref`; any other property renders as `Fn::GetAtt`.
		RefAttribute string   `json:"ref_attribute" yaml:"ref_attribute"`
		Attributes   []string `json:"attributes" yaml:"attributes"`
		// OpenAttributes allows any attribute name, such as the `Data` keys returned by a custom resource.
		OpenAttributes bool `json:"open_attributes" yaml:"open_attributes"`

		RequiredProperties []string `json:"required_properties" yaml:"required_properties"`

		// DeletionPolicy is the provisioning engine's default when the resource does not set one.
		DeletionPolicy string `json:"deletion_policy" yaml:"deletion_policy"`

		Tags *TagSpec `json:"tags" yaml:"tags"`
	}

	TagSpec struct {
		Property string    `json:"property" yaml:"property"`
		Format   TagFormat `json:"format" yaml:"format"`
	}

	TagFormat string
)

const (
	// TagFormatList is `[{Key: k, Value: v}, ...]`.
	TagFormatList TagFormat = "list"
	// TagFormatMap is `{k: v, ...}`.
	TagFormatMap TagFormat = "map"
)

func (t ResourceTemplate) Id() construct.ResourceId {
	var id construct.ResourceId
	_ = id.Parse(t.QualifiedTypeName)
	return id
}

func (t ResourceTemplate) IsRefAttribute(attr string) bool {
	return attr == t.RefAttribute
}

func (t ResourceTemplate) HasAttribute(attr string) bool {
	return t.OpenAttributes || t.IsRefAttribute(attr) || slices.Contains(t.Attributes, attr)
}

// ValidateProperties checks that every required property of r is set.
func (t ResourceTemplate) ValidateProperties(r *construct.Resource) error {
	var missing []string
	for _, p := range t.RequiredProperties {
		v, err := r.GetProperty(p)
		if err != nil {
			return fmt.Errorf("%s: %w", r.ID, err)
		}
		if v == nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required properties: %s", r.ID, strings.Join(missing, ", "))
	}
	return nil
}

func (t ResourceTemplate) validate() error {
	var problems []string
	if t.CloudFormationType == "" {
		problems = append(problems, "cloudformation_type is required")
	} else if len(strings.Split(t.CloudFormationType, "::")) != 3 {
		problems = append(problems, fmt.Sprintf("cloudformation_type %q is not of the form Service::Provider::Type", t.CloudFormationType))
	}
	if t.RefAttribute == "" {
		problems = append(problems, "ref_attribute is required")
	}
	switch t.DeletionPolicy {
	case "", "Delete", "Retain", "Snapshot", "RetainExceptOnCreate":
	default:
		problems = append(problems, fmt.Sprintf("unknown deletion_policy %q", t.DeletionPolicy))
	}
	if t.Tags != nil {
		if t.Tags.Property == "" {
			problems = append(problems, "tags.property is required")
		}
		if t.Tags.Format != TagFormatList && t.Tags.Format != TagFormatMap {
			problems = append(problems, fmt.Sprintf("unknown tags.format %q", t.Tags.Format))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
