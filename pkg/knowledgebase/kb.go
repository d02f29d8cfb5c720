package knowledgebase

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/templates"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type (
	// TemplateSource is the read side of the knowledge base used by the template translator.
	TemplateSource interface {
		GetResourceTemplate(id construct.ResourceId) (*ResourceTemplate, error)
	}

	KnowledgeBase struct {
		resourceTemplates map[string]*ResourceTemplate
	}
)

var ErrUnknownType = errors.New("unknown resource type")

func NewKB() *KnowledgeBase {
	return &KnowledgeBase{
		resourceTemplates: make(map[string]*ResourceTemplate),
	}
}

// Load reads the resource templates embedded in the binary.
func Load() (*KnowledgeBase, error) {
	return NewKBFromFs(templates.ResourceTemplates)
}

func NewKBFromFs(resources fs.FS) (*KnowledgeBase, error) {
	kb := NewKB()
	tmpls, err := TemplatesFromFs(resources)
	if err != nil {
		return nil, err
	}
	var errs error
	for _, t := range tmpls {
		if err := kb.AddResourceTemplate(t); err != nil {
			errs = errors.Join(errs, fmt.Errorf("error adding resource template %s: %w", t.QualifiedTypeName, err))
		}
	}
	return kb, errs
}

func TemplatesFromFs(dir fs.FS) (map[construct.ResourceId]*ResourceTemplate, error) {
	log := zap.L().Named("kb.load")
	tmpls := map[construct.ResourceId]*ResourceTemplate{}
	err := fs.WalkDir(dir, ".", func(path string, d fs.DirEntry, nerr error) error {
		if nerr != nil {
			return nerr
		}
		if d.IsDir() {
			return nil
		}
		log.Debug("Loading resource template", zap.String("path", path))
		f, err := dir.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		resTemplate := &ResourceTemplate{}
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(resTemplate); err != nil {
			return fmt.Errorf("could not decode %s: %w", path, err)
		}

		id := construct.ResourceId{}
		if err := id.UnmarshalText([]byte(resTemplate.QualifiedTypeName)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if tmpls[id] != nil {
			return fmt.Errorf("duplicate template for %s", id)
		}
		tmpls[id] = resTemplate
		return nil
	})
	return tmpls, err
}

func (kb *KnowledgeBase) AddResourceTemplate(template *ResourceTemplate) error {
	if _, ok := kb.resourceTemplates[template.QualifiedTypeName]; ok {
		return fmt.Errorf("resource template %s already exists", template.QualifiedTypeName)
	}
	if err := template.validate(); err != nil {
		return err
	}
	kb.resourceTemplates[template.QualifiedTypeName] = template
	return nil
}

func (kb *KnowledgeBase) GetResourceTemplate(id construct.ResourceId) (*ResourceTemplate, error) {
	t, ok := kb.resourceTemplates[id.QualifiedTypeName()]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownType, id.QualifiedTypeName())
	}
	return t, nil
}

// ListResources returns every template, sorted by qualified type name.
func (kb *KnowledgeBase) ListResources() []*ResourceTemplate {
	list := make([]*ResourceTemplate, 0, len(kb.resourceTemplates))
	for _, t := range kb.resourceTemplates {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].QualifiedTypeName < list[j].QualifiedTypeName
	})
	return list
}
