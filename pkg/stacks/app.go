package stacks

import (
	"errors"
	"fmt"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/grace-platform/grace/pkg/config"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type (
	App struct {
		Config config.Application
		Tags   map[string]string
		Assets AssetResolver
		// Now stamps custom resources that must run on every deploy.
		Now func() time.Time

		stacks map[string]*Stack
		order  []string

		network  *networkOutputs
		database *databaseOutputs
		storage  *storageOutputs
		eventBus *eventBusOutputs
		compute  *computeOutputs
	}

	// AssetResolver locates the staged deployment package of a function handler.
	AssetResolver interface {
		Location(handler string) (bucket, key string, err error)
	}

	Option func(*App)
)

const (
	NetworkStackName  = "GraceNetworkStack"
	DatabaseStackName = "GraceDatabaseStack"
	StorageStackName  = "GraceStorageStack"
	EventBusStackName = "GraceEventBusStack"
	ComputeStackName  = "GraceComputeStack"
	ApiStackName      = "GraceApiStack"
	WorkflowStackName = "GraceWorkflowStack"
)

// Handler names, as bundled by the assets package.
const (
	TagUpdaterHandler       = "tagupdater"
	AuditHandler            = "audithandler"
	ChainVerifierHandler    = "chainverifier"
	ProvenanceLoggerHandler = "provenancelogger"
	DbInitHandler           = "dbinit"
)

// Handlers lists every handler that some stack deploys.
var Handlers = []string{
	TagUpdaterHandler,
	AuditHandler,
	ChainVerifierHandler,
	ProvenanceLoggerHandler,
	DbInitHandler,
}

// ManagedBy is the value of the `ManagedBy` tag on every resource, and the one the bucket tag updater
// writes.
const ManagedBy = "CDK"

func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.Now = now
	}
}

// NewApp declares every stack for cfg. Function code locations come from assets.
func NewApp(cfg config.Application, assets AssetResolver, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{
		Config: cfg,
		Assets: assets,
		Now:    time.Now,
		stacks: make(map[string]*Stack),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Tags = map[string]string{
		"Project":     "GRACE",
		"ManagedBy":   ManagedBy,
		"Environment": environmentTag(cfg),
	}
	for k, v := range cfg.Tags {
		a.Tags[k] = v
	}

	builders := []func() (*Stack, error){
		a.networkStack,
		a.databaseStack,
		a.storageStack,
		a.eventBusStack,
		a.computeStack,
		a.apiStack,
		a.workflowStack,
	}
	// Later stacks refer to resources of earlier ones, so stop at the first failure.
	for _, build := range builders {
		s, err := build()
		if err != nil {
			return nil, err
		}
		if err := a.add(s); err != nil {
			return nil, err
		}
	}
	order, err := a.sortStacks()
	if err != nil {
		return nil, err
	}
	a.order = order
	return a, nil
}

func environmentTag(cfg config.Application) string {
	if cfg.Production {
		return "Production"
	}
	return "Development"
}

func (a *App) add(s *Stack) error {
	if _, ok := a.stacks[s.Name]; ok {
		return fmt.Errorf("duplicate stack %s", s.Name)
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("stack %s: %w", s.Name, err)
	}
	for k, v := range a.Tags {
		if _, ok := s.Tags[k]; !ok {
			s.Tags[k] = v
		}
	}
	a.stacks[s.Name] = s
	return nil
}

// sortStacks orders the stacks so that every stack comes after the stacks it depends on.
func (a *App) sortStacks() ([]string, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for name := range a.stacks {
		if err := g.AddVertex(name); err != nil {
			return nil, err
		}
	}
	var errs error
	for name, s := range a.stacks {
		deps, err := s.Dependencies()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		for _, dep := range deps {
			if _, ok := a.stacks[dep]; !ok {
				errs = errors.Join(errs, fmt.Errorf("stack %s depends on unknown stack %s", name, dep))
				continue
			}
			// Edges point from a dependency to its dependent so that the sort yields deploy order.
			if err := g.AddEdge(dep, name); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				errs = errors.Join(errs, fmt.Errorf("stack %s cannot depend on %s: %w", name, dep, err))
			}
		}
	}
	if errs != nil {
		return nil, errs
	}
	return graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
}

// Stacks returns the stacks in deploy order.
func (a *App) Stacks() []*Stack {
	out := make([]*Stack, len(a.order))
	for i, name := range a.order {
		out[i] = a.stacks[name]
	}
	return out
}

func (a *App) Stack(name string) (*Stack, bool) {
	s, ok := a.stacks[name]
	return s, ok
}

// functionCode resolves the code location of handler.
func (a *App) functionCode(handler string) (aws.Code, error) {
	if a.Assets == nil {
		return aws.Code{}, fmt.Errorf("no asset resolver for function %s", handler)
	}
	bucket, key, err := a.Assets.Location(handler)
	if err != nil {
		return aws.Code{}, fmt.Errorf("could not locate code for %s: %w", handler, err)
	}
	return aws.Code{S3Bucket: bucket, S3Key: key}, nil
}

// StaticAssets resolves every handler to `<Prefix><handler>.zip` in Bucket.
type StaticAssets struct {
	Bucket string
	Prefix string
}

func (s StaticAssets) Location(handler string) (string, string, error) {
	return s.Bucket, s.Prefix + handler + ".zip", nil
}
