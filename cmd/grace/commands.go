package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/grace-platform/grace/pkg/assets"
	"github.com/grace-platform/grace/pkg/cloudformation"
	"github.com/grace-platform/grace/pkg/construct"
	kio "github.com/grace-platform/grace/pkg/io"
	"github.com/grace-platform/grace/pkg/logging"
	"github.com/lithammer/dedent"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var synthCfg struct {
	outDir string
	bundle bool
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write every stack's template and the manifest to the output directory",
		Args:  cobra.NoArgs,
		RunE:  synth,
	}
	flags := cmd.Flags()
	flags.StringVarP(&synthCfg.outDir, "out", "o", "cdk.out", "Output directory")
	flags.BoolVar(&synthCfg.bundle, "bundle", false, "Also build the function bundles into <out>/assets")
	return cmd
}

func synth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := loadProject(ctx)
	if err != nil {
		return err
	}
	syn, err := p.synthesize(ctx)
	if err != nil {
		return err
	}
	files, err := syn.Files(p.Format)
	if err != nil {
		return errors.Wrap(err, "could not encode templates")
	}
	if synthCfg.bundle {
		bundles, err := bundle(cmd, p.Catalog, nil)
		if err != nil {
			return err
		}
		files = append(files, bundles...)
	}
	if err := kio.OutputTo(files, synthCfg.outDir); err != nil {
		return errors.Wrapf(err, "could not write to %s", synthCfg.outDir)
	}
	logging.GetLogger(ctx).Info("Wrote synthesized application",
		zap.String("out", synthCfg.outDir),
		zap.Int("files", len(files)),
	)
	return nil
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the stacks in deploy order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STACK\tRESOURCES\tDEPENDS ON")
			for _, s := range p.App.Stacks() {
				deps, err := s.Dependencies()
				if err != nil {
					return err
				}
				order, err := s.Graph().Order()
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, order, strings.Join(deps, ", "))
			}
			return w.Flush()
		},
	}
}

var graphCfg struct {
	output string
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <stack>",
		Short: "Print a stack's resource graph",
		Long: dedent.Dedent(`
			Print the resources a stack declares and the dependencies between them.

			  --output yaml   resources with their properties, and the dependency edges
			  --output text   each resource followed by the resources it depends on
			  --output dot    Graphviz, for example: grace graph GraceStorageStack -o dot | dot -Tsvg
		`),
		Args: cobra.ExactArgs(1),
		RunE: graph,
	}
	cmd.Flags().StringVarP(&graphCfg.output, "output", "o", "yaml", "Output format: yaml, text, or dot")
	return cmd
}

func graph(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd.Context())
	if err != nil {
		return err
	}
	s, err := p.stack(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch graphCfg.output {
	case "yaml":
		return construct.GraphToYAML(s.Graph(), out)
	case "dot":
		return construct.GraphToDOT(s.Graph(), s.Name, out)
	case "text":
		str, err := construct.String(s.Graph())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, str)
		return err
	}
	return errors.Errorf("unknown graph output %q", graphCfg.output)
}

var diffCfg struct {
	against string
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [stack...]",
		Short: "Compare the synthesized templates with previously written ones",
		RunE:  diff,
	}
	cmd.Flags().StringVar(&diffCfg.against, "against", "cdk.out", "Directory of a previous synth")
	return cmd
}

func diff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := loadProject(ctx)
	if err != nil {
		return err
	}
	syn, err := p.synthesize(ctx)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		for _, s := range p.App.Stacks() {
			names = append(names, s.Name)
		}
	}
	for _, name := range names {
		tmpl, ok := syn.Templates[name]
		if !ok {
			return errors.Errorf("no stack named %q", name)
		}
		old, err := readPrevious(name)
		if err != nil {
			return err
		}
		changes, err := cloudformation.DiffTemplates(old, tmpl)
		if err != nil {
			return errors.Wrapf(err, "could not diff %s", name)
		}
		if err := cloudformation.WriteChangelog(cmd.OutOrStdout(), name, changes); err != nil {
			return err
		}
	}
	return nil
}

// readPrevious loads the stack's template from the --against directory in either format. A missing
// template is a new stack.
func readPrevious(stack string) (*cloudformation.Template, error) {
	for _, format := range []cloudformation.Format{cloudformation.FormatJSON, cloudformation.FormatYAML} {
		path := filepath.Join(diffCfg.against, cloudformation.TemplateFile(stack, format))
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "could not read %s", path)
		}
		t, err := cloudformation.ParseTemplate(data)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read %s", path)
		}
		return t, nil
	}
	return nil, nil
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <stack> <path>",
		Short: "Query a synthesized template with a JSONPath expression",
		Long: dedent.Dedent(`
			Run a JSONPath query against the stack's synthesized template and print each match as YAML.

			  grace query GraceStorageStack '$.Resources.S3BucketLedger.Properties.ObjectLockConfiguration'
			  grace query GraceApiStack '$.Outputs..Value'
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := loadProject(ctx)
			if err != nil {
				return err
			}
			syn, err := p.synthesize(ctx)
			if err != nil {
				return err
			}
			tmpl, ok := syn.Templates[args[0]]
			if !ok {
				return errors.Errorf("no stack named %q", args[0])
			}
			data, err := tmpl.Encode(cloudformation.FormatYAML)
			if err != nil {
				return err
			}
			results, err := cloudformation.Query(data, args[1])
			if err != nil {
				return errors.Wrapf(err, "could not query %s", args[0])
			}
			if len(results) == 0 {
				logging.GetLogger(ctx).Warn("No matches", zap.String("path", args[1]))
			}
			out := cmd.OutOrStdout()
			for i, r := range results {
				if i > 0 {
					fmt.Fprintln(out, "---")
				}
				fmt.Fprint(out, r)
			}
			return nil
		},
	}
}

var bundleCfg struct {
	outDir     string
	workers    int
	buildFlags string
}

func newBundleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle [handler...]",
		Short: "Build the Lambda function bundles",
		Long: dedent.Dedent(`
			Cross-compile each handler under cmd/ for linux/arm64 and zip it as the bootstrap binary of a
			custom runtime. Bundles are written to <out>/assets/<content hash>.zip, which is the key
			the synthesized templates expect in the asset bucket.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd.Context())
			if err != nil {
				return err
			}
			files, err := bundle(cmd, p.Catalog, args)
			if err != nil {
				return err
			}
			return errors.Wrapf(kio.OutputTo(files, bundleCfg.outDir), "could not write to %s", bundleCfg.outDir)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&bundleCfg.outDir, "out", "o", "cdk.out", "Output directory")
	flags.IntVar(&bundleCfg.workers, "workers", 4, "Number of bundles to build at once")
	flags.StringVar(&bundleCfg.buildFlags, "build-flags", "", "Extra go build flags, quoted as for a shell")
	return cmd
}

func bundle(cmd *cobra.Command, catalog *assets.Catalog, handlers []string) ([]kio.File, error) {
	b := assets.NewBundler(catalog)
	if bundleCfg.workers > 0 {
		b.Workers = bundleCfg.workers
	}
	buildFlags, err := assets.ParseBuildFlags(bundleCfg.buildFlags)
	if err != nil {
		return nil, err
	}
	b.Build = assets.GoBuilder{Flags: buildFlags}.Build
	if term.IsTerminal(int(os.Stderr.Fd())) {
		b.Progress = cmd.ErrOrStderr()
		b.ProgressWidth = logging.TermWidth() / 3
	}
	files, err := b.Bundle(cmd.Context(), handlers...)
	if err != nil {
		return nil, errors.Wrap(err, "could not build bundles")
	}
	return files, nil
}
