package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grace-platform/grace/pkg/assets"
	"github.com/grace-platform/grace/pkg/cloudformation"
	"github.com/grace-platform/grace/pkg/config"
	"github.com/grace-platform/grace/pkg/knowledgebase"
	"github.com/grace-platform/grace/pkg/logging"
	"github.com/grace-platform/grace/pkg/stacks"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const defaultConfigFile = "grace.yaml"

// loadConfig reads --config (or grace.yaml when present) and applies the -c overrides.
func loadConfig(ctx context.Context) (config.Application, error) {
	log := logging.GetLogger(ctx)
	path := commonCfg.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.ReadConfig(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "could not read config %s", path)
		}
		log.Debug("Read config", logging.FileField(path))
	}
	if err := cfg.ApplyOverrides(commonCfg.overrides); err != nil {
		return cfg, errors.Wrap(err, "could not apply -c overrides")
	}
	if cfg.Assets.SourceRoot != "" && !filepath.IsAbs(cfg.Assets.SourceRoot) && path != "" {
		cfg.Assets.SourceRoot = filepath.Join(filepath.Dir(path), cfg.Assets.SourceRoot)
	}
	return cfg, nil
}

type project struct {
	Config  config.Application
	Catalog *assets.Catalog
	App     *stacks.App
	KB      *knowledgebase.KnowledgeBase
	Format  cloudformation.Format
}

func loadProject(ctx context.Context) (*project, error) {
	format, err := cloudformation.ParseFormat(commonCfg.format)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	catalog := assets.NewCatalog(cfg.Assets.SourceRoot, cfg.Assets.Bucket, assets.DefaultSources(stacks.Handlers...))
	app, err := stacks.NewApp(cfg, catalog)
	if err != nil {
		return nil, errors.Wrap(err, "could not declare stacks")
	}
	kb, err := knowledgebase.Load()
	if err != nil {
		return nil, errors.Wrap(err, "could not load resource templates")
	}
	logging.GetLogger(ctx).Debug("Loaded project",
		zap.String("environment", cfg.Environment()),
		zap.String("region", cfg.Region),
		zap.Int("stacks", len(app.Stacks())),
	)
	return &project{Config: cfg, Catalog: catalog, App: app, KB: kb, Format: format}, nil
}

func (p *project) synthesize(ctx context.Context) (*cloudformation.Synthesis, error) {
	syn, err := cloudformation.Synthesize(ctx, p.App, p.KB, p.Format)
	if err != nil {
		return nil, errors.Wrap(err, "could not synthesize")
	}
	return syn, nil
}

func (p *project) stack(name string) (*stacks.Stack, error) {
	s, ok := p.App.Stack(name)
	if !ok {
		return nil, errors.Errorf("no stack named %q", name)
	}
	return s, nil
}
