package cloudformation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/grace-platform/grace/pkg/construct"
	kio "github.com/grace-platform/grace/pkg/io"
	"github.com/grace-platform/grace/pkg/knowledgebase"
	"github.com/grace-platform/grace/pkg/logging"
	"github.com/grace-platform/grace/pkg/provider/aws"
	"github.com/grace-platform/grace/pkg/stacks"
	"go.uber.org/zap"
)

const ManifestVersion = "1.0"

type (
	Synthesis struct {
		// Templates is keyed by stack name.
		Templates map[string]*Template
		Manifest  *Manifest
	}

	// Manifest describes the synthesized application for the deploy step: which templates to deploy
	// in which order, and which function bundles they expect in the asset bucket.
	Manifest struct {
		Version     string              `json:"version"`
		App         string              `json:"app"`
		Environment ManifestEnvironment `json:"environment"`
		Stacks      []ManifestStack     `json:"stacks"`
		Assets      []ManifestAsset     `json:"assets,omitempty"`
	}

	ManifestEnvironment struct {
		Name       string `json:"name"`
		Production bool   `json:"production"`
		Region     string `json:"region"`
		Account    string `json:"account,omitempty"`
	}

	ManifestStack struct {
		Name         string            `json:"name"`
		Description  string            `json:"description,omitempty"`
		TemplateFile string            `json:"template_file"`
		Dependencies []string          `json:"dependencies,omitempty"`
		Tags         map[string]string `json:"tags,omitempty"`
		Exports      []string          `json:"exports,omitempty"`
	}

	ManifestAsset struct {
		Stack    string `json:"stack"`
		Function string `json:"function"`
		Bucket   string `json:"bucket"`
		Key      string `json:"key"`
	}
)

func TemplateFile(stack string, format Format) string {
	return fmt.Sprintf("%s.template.%s", stack, format.Extension())
}

// Synthesize translates every stack of app. Values one stack uses from another are exported by the
// producer and imported by the consumer.
func Synthesize(ctx context.Context, app *stacks.App, kb knowledgebase.TemplateSource, format Format) (*Synthesis, error) {
	log := logging.GetLogger(ctx).Named("synth")
	all := app.Stacks()
	byName := make(map[string]*stacks.Stack, len(all))
	t := NewTranslator(kb)

	var errs error
	for _, s := range all {
		byName[s.Name] = s
		errs = errors.Join(errs, t.AddStack(s))
	}
	if errs != nil {
		return nil, errs
	}
	for _, s := range all {
		errs = errors.Join(errs, t.CollectExports(s, byName))
	}
	if errs != nil {
		return nil, errs
	}

	syn := &Synthesis{
		Templates: make(map[string]*Template, len(all)),
		Manifest: &Manifest{
			Version: ManifestVersion,
			App:     app.Config.AppName,
			Environment: ManifestEnvironment{
				Name:       app.Config.Environment(),
				Production: app.Config.Production,
				Region:     app.Config.Region,
				Account:    app.Config.Account,
			},
		},
	}
	for _, s := range all {
		tmpl, err := t.Translate(s)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		syn.Templates[s.Name] = tmpl
		log.Debug("Translated stack", logging.StackField(s.Name), zap.Int("resources", len(tmpl.Resources)))

		deps, err := s.Dependencies()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		syn.Manifest.Stacks = append(syn.Manifest.Stacks, ManifestStack{
			Name:         s.Name,
			Description:  s.Description,
			TemplateFile: TemplateFile(s.Name, format),
			Dependencies: deps,
			Tags:         s.Tags,
			Exports:      exportNames(tmpl),
		})
		fnAssets, err := assets(s)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		syn.Manifest.Assets = append(syn.Manifest.Assets, fnAssets...)
	}
	if errs != nil {
		return nil, errs
	}
	log.Info("Synthesized application", zap.Int("stacks", len(all)), zap.Int("exports", len(t.Exports)))
	return syn, nil
}

func exportNames(tmpl *Template) []string {
	var names []string
	for _, o := range tmpl.Outputs {
		if o.Export == nil {
			continue
		}
		if name, ok := o.Export.Name.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// assets lists the function bundles the stack deploys from S3.
func assets(s *stacks.Stack) ([]ManifestAsset, error) {
	var out []ManifestAsset
	resources, err := construct.Resources(s.Graph())
	if err != nil {
		return nil, err
	}
	for _, r := range resources {
		if r.ID.Type != aws.LAMBDA_FUNCTION_TYPE || r.ID.Namespace != s.Name {
			continue
		}
		bucket, _ := r.GetProperty("Code.S3Bucket")
		key, _ := r.GetProperty("Code.S3Key")
		b, bok := bucket.(string)
		k, kok := key.(string)
		if !bok || !kok || b == "" || k == "" {
			continue
		}
		out = append(out, ManifestAsset{Stack: s.Name, Function: r.ID.Name, Bucket: b, Key: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Function < out[j].Function })
	return out, nil
}

// Files returns the template and manifest files of the synthesis.
func (syn *Synthesis) Files(format Format) ([]kio.File, error) {
	var files []kio.File
	var errs error
	names := make([]string, 0, len(syn.Templates))
	for name := range syn.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		content, err := syn.Templates[name].Encode(format)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not encode %s: %w", name, err))
			continue
		}
		files = append(files, &kio.RawFile{FPath: TemplateFile(name, format), Content: content})
	}
	manifest, err := encode(syn.Manifest, FormatJSON)
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("could not encode manifest: %w", err))
	} else {
		files = append(files, &kio.RawFile{FPath: "manifest.json", Content: manifest})
	}
	return files, errs
}
