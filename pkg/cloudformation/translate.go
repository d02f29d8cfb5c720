package cloudformation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/knowledgebase"
	"github.com/grace-platform/grace/pkg/stacks"
)

// Properties that are template resource attributes rather than resource properties.
const (
	deletionPolicyProperty      = "DeletionPolicy"
	updateReplacePolicyProperty = "UpdateReplacePolicy"
)

type (
	// exportKey identifies a value that one stack provides to another. Attr is empty for the value
	// `Ref` returns.
	exportKey struct {
		Resource construct.ResourceId
		Attr     string
	}

	// Translator renders stacks into templates. LogicalIds and Exports span every stack of the
	// application so that cross-stack references can be resolved.
	Translator struct {
		KB         knowledgebase.TemplateSource
		LogicalIds map[construct.ResourceId]string
		Exports    map[exportKey]string
	}

	// stackTranslation is the state for translating a single stack.
	stackTranslation struct {
		*Translator
		stack *stacks.Stack
	}
)

func NewTranslator(kb knowledgebase.TemplateSource) *Translator {
	return &Translator{
		KB:         kb,
		LogicalIds: make(map[construct.ResourceId]string),
		Exports:    make(map[exportKey]string),
	}
}

// AddStack registers the logical ids of s's resources.
func (t *Translator) AddStack(s *stacks.Stack) error {
	ids, err := LogicalIds(s.Graph())
	if err != nil {
		return fmt.Errorf("stack %s: %w", s.Name, err)
	}
	for id, logical := range ids {
		t.LogicalIds[id] = logical
	}
	return nil
}

// key normalizes a reference so that `Ref` and a property ref to the ref attribute are the same export.
func (t *Translator) key(id construct.ResourceId, attr string) (exportKey, error) {
	tmpl, err := t.KB.GetResourceTemplate(id)
	if err != nil {
		return exportKey{}, err
	}
	if attr == "" || tmpl.IsRefAttribute(attr) {
		return exportKey{Resource: id}, nil
	}
	if !tmpl.HasAttribute(attr) {
		return exportKey{}, fmt.Errorf("%s has no attribute %q", id, attr)
	}
	return exportKey{Resource: id, Attr: attr}, nil
}

// ExportName is the name under which a stack exports a value for other stacks.
func ExportName(stack, logicalId, attr string) string {
	if attr == "" {
		attr = "Ref"
	}
	return stack + ":" + logicalId + strings.ReplaceAll(attr, ".", "")
}

// CollectExports records an export for every value s uses from another stack. Values that the
// producing stack already exports under a fixed name reuse that export.
func (t *Translator) CollectExports(s *stacks.Stack, producers map[string]*stacks.Stack) error {
	var errs error
	collect := func(v any) error {
		var id construct.ResourceId
		var attr string
		switch v := v.(type) {
		case construct.ResourceId:
			id = v
		case construct.PropertyRef:
			id, attr = v.Resource, v.Property
		default:
			return nil
		}
		if id.Namespace == s.Name {
			return nil
		}
		key, err := t.key(id, attr)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("stack %s: %w", s.Name, err))
			return nil
		}
		if _, ok := t.Exports[key]; ok {
			return nil
		}
		producer, ok := producers[id.Namespace]
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("stack %s: %s belongs to unknown stack %s", s.Name, id, id.Namespace))
			return nil
		}
		logical, ok := t.LogicalIds[id]
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("stack %s: %s is not declared in %s", s.Name, id, id.Namespace))
			return nil
		}
		name := ExportName(producer.Name, logical, key.Attr)
		for _, o := range producer.Outputs {
			if o.ExportName == "" {
				continue
			}
			if existing, ok := t.outputKey(o.Value); ok && existing == key {
				name = o.ExportName
				break
			}
		}
		t.Exports[key] = name
		return nil
	}

	resources, err := construct.Resources(s.Graph())
	if err != nil {
		return err
	}
	for _, r := range resources {
		if err := construct.WalkValues(r.Properties, collect); err != nil {
			errs = errors.Join(errs, fmt.Errorf("stack %s: could not walk %s: %w", s.Name, r.ID, err))
		}
	}
	for _, o := range s.Outputs {
		if err := construct.WalkValues(o.Value, collect); err != nil {
			errs = errors.Join(errs, fmt.Errorf("stack %s: could not walk output %s: %w", s.Name, o.Name, err))
		}
	}
	return errs
}

func (t *Translator) outputKey(v any) (exportKey, bool) {
	var key exportKey
	var err error
	switch v := v.(type) {
	case construct.ResourceId:
		key, err = t.key(v, "")
	case construct.PropertyRef:
		key, err = t.key(v.Resource, v.Property)
	default:
		return exportKey{}, false
	}
	return key, err == nil
}

// Translate renders s into a template.
func (t *Translator) Translate(s *stacks.Stack) (*Template, error) {
	st := &stackTranslation{Translator: t, stack: s}
	tmpl := &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              s.Description,
		Resources:                make(map[string]*Resource),
		Outputs:                  make(map[string]*Output),
	}

	resources, err := construct.Resources(s.Graph())
	if err != nil {
		return nil, err
	}
	var errs error
	for _, r := range resources {
		res, err := st.resource(r)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		tmpl.Resources[t.LogicalIds[r.ID]] = res
	}

	for _, o := range s.Outputs {
		if _, ok := tmpl.Outputs[o.Name]; ok {
			errs = errors.Join(errs, fmt.Errorf("stack %s: duplicate output %s", s.Name, o.Name))
			continue
		}
		value, err := st.value(o.Value)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("output %s: %w", o.Name, err))
			continue
		}
		out := &Output{Value: value, Description: o.Description}
		if o.ExportName != "" {
			out.Export = &Export{Name: o.ExportName}
		}
		tmpl.Outputs[o.Name] = out
	}

	if err := st.exports(tmpl); err != nil {
		errs = errors.Join(errs, err)
	}
	if errs != nil {
		return nil, fmt.Errorf("stack %s: %w", s.Name, errs)
	}
	if len(tmpl.Outputs) == 0 {
		tmpl.Outputs = nil
	}
	return tmpl, nil
}

// exports adds an output for every value of this stack that another stack uses, unless the stack
// already exports it under that name.
func (st *stackTranslation) exports(tmpl *Template) error {
	declared := make(map[string]bool)
	for _, o := range tmpl.Outputs {
		if o.Export != nil {
			if name, ok := o.Export.Name.(string); ok {
				declared[name] = true
			}
		}
	}
	keys := make([]exportKey, 0, len(st.Exports))
	for key := range st.Exports {
		if key.Resource.Namespace == st.stack.Name {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Resource != keys[j].Resource {
			return construct.ResourceIdLess(keys[i].Resource, keys[j].Resource)
		}
		return keys[i].Attr < keys[j].Attr
	})

	var errs error
	for _, key := range keys {
		name := st.Exports[key]
		if declared[name] {
			continue
		}
		value, err := st.ref(key.Resource, key.Attr)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		attr := key.Attr
		if attr == "" {
			attr = "Ref"
		}
		outName := "Export" + st.LogicalIds[key.Resource] + strings.ReplaceAll(attr, ".", "")
		tmpl.Outputs[outName] = &Output{Value: value, Export: &Export{Name: name}}
	}
	return errs
}

func (st *stackTranslation) resource(r *construct.Resource) (*Resource, error) {
	rt, err := st.KB.GetResourceTemplate(r.ID)
	if err != nil {
		return nil, err
	}
	if err := rt.ValidateProperties(r); err != nil {
		return nil, err
	}

	props := make(map[string]any, len(r.Properties))
	for k, v := range r.Properties {
		props[k] = v
	}
	res := &Resource{
		Type:           rt.CloudFormationType,
		DeletionPolicy: rt.DeletionPolicy,
	}
	if v, ok := props[deletionPolicyProperty]; ok {
		delete(props, deletionPolicyProperty)
		if s, ok := v.(string); ok {
			res.DeletionPolicy = s
		}
	}
	res.UpdateReplacePolicy = res.DeletionPolicy
	if v, ok := props[updateReplacePolicyProperty]; ok {
		delete(props, updateReplacePolicyProperty)
		if s, ok := v.(string); ok {
			res.UpdateReplacePolicy = s
		}
	}
	if rt.Tags != nil && len(st.stack.Tags) > 0 {
		tags, err := mergeTags(props[rt.Tags.Property], st.stack.Tags, rt.Tags.Format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID, err)
		}
		props[rt.Tags.Property] = tags
	}

	rendered, err := st.value(props)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.ID, err)
	}
	if m, ok := rendered.(map[string]any); ok && len(m) > 0 {
		res.Properties = m
	}

	deps, err := construct.DirectDownstreamDependencies(st.stack.Graph(), r.ID)
	if err != nil {
		return nil, err
	}
	refs := r.References()
	for _, dep := range deps {
		if refs.Contains(dep) {
			continue
		}
		res.DependsOn = append(res.DependsOn, st.LogicalIds[dep])
	}
	sort.Strings(res.DependsOn)
	return res, nil
}

// mergeTags adds the stack tags that the resource does not set itself.
func mergeTags(existing any, stackTags map[string]string, format knowledgebase.TagFormat) (any, error) {
	keys := make([]string, 0, len(stackTags))
	for k := range stackTags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	switch format {
	case knowledgebase.TagFormatMap:
		merged := make(map[string]any)
		if existing != nil {
			m, ok := existing.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected tag map, got %T", existing)
			}
			for k, v := range m {
				merged[k] = v
			}
		}
		for _, k := range keys {
			if _, ok := merged[k]; !ok {
				merged[k] = stackTags[k]
			}
		}
		return merged, nil

	case knowledgebase.TagFormatList:
		var merged []any
		set := make(map[any]bool)
		if existing != nil {
			list, ok := existing.([]any)
			if !ok {
				return nil, fmt.Errorf("expected tag list, got %T", existing)
			}
			for _, tag := range list {
				m, ok := tag.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("expected tag, got %T", tag)
				}
				set[m["Key"]] = true
				merged = append(merged, tag)
			}
		}
		for _, k := range keys {
			if !set[k] {
				merged = append(merged, map[string]any{"Key": k, "Value": stackTags[k]})
			}
		}
		return merged, nil
	}
	return nil, fmt.Errorf("unknown tag format %q", format)
}

// ref renders a reference to a resource's ref value (empty attr) or attribute.
func (st *stackTranslation) ref(id construct.ResourceId, attr string) (any, error) {
	key, err := st.key(id, attr)
	if err != nil {
		return nil, err
	}
	if id.Namespace != st.stack.Name {
		name, ok := st.Exports[key]
		if !ok {
			return nil, fmt.Errorf("no export for %s from stack %s", id, id.Namespace)
		}
		return map[string]any{"Fn::ImportValue": name}, nil
	}
	logical, ok := st.LogicalIds[id]
	if !ok {
		return nil, fmt.Errorf("reference to undeclared resource %s", id)
	}
	if key.Attr == "" {
		return map[string]any{"Ref": logical}, nil
	}
	return map[string]any{"Fn::GetAtt": []any{logical, key.Attr}}, nil
}

// value renders a property value, replacing references and intrinsics with their template form.
func (st *stackTranslation) value(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil

	case construct.ResourceId:
		return st.ref(v, "")

	case construct.PropertyRef:
		return st.ref(v.Resource, v.Property)

	case intrinsic.Pseudo:
		return map[string]any{"Ref": string(v)}, nil

	case intrinsic.Join:
		values, err := st.list(v.Values)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Fn::Join": []any{v.Delimiter, values}}, nil

	case intrinsic.Sub:
		if len(v.Vars) == 0 {
			return map[string]any{"Fn::Sub": v.Template}, nil
		}
		vars, err := st.value(v.Vars)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Fn::Sub": []any{v.Template, vars}}, nil

	case intrinsic.Select:
		list, err := st.value(v.List)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Fn::Select": []any{v.Index, list}}, nil

	case intrinsic.GetAZs:
		return map[string]any{"Fn::GetAZs": ""}, nil

	case intrinsic.Cidr:
		block, err := st.value(v.IpBlock)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Fn::Cidr": []any{block, v.Count, v.CidrBits}}, nil

	case intrinsic.ImportValue:
		name, err := st.value(v.Name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Fn::ImportValue": name}, nil

	case intrinsic.Literal:
		return v.Value, nil

	case string, bool, int, int64, float64:
		return v, nil

	case []any:
		return st.list(v)
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.String:
		return rv.String(), nil

	case reflect.Bool:
		return rv.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil

	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			list[i] = rv.Index(i).Interface()
		}
		return st.list(list)

	case reflect.Map:
		out := make(map[string]any, rv.Len())
		var errs error
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := iter.Key().Interface().(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", iter.Key().Interface())
			}
			val, err := st.value(iter.Value().Interface())
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			if val != nil {
				out[key] = val
			}
		}
		return out, errs
	}
	return nil, fmt.Errorf("unsupported property value %v (%T)", v, v)
}

func (st *stackTranslation) list(values []any) ([]any, error) {
	out := make([]any, 0, len(values))
	var errs error
	for i, item := range values {
		val, err := st.value(item)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("[%d]: %w", i, err))
			continue
		}
		out = append(out, val)
	}
	return out, errs
}
