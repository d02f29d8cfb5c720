package stacks

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/grace-platform/grace/pkg/config"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func testConfig(mutate ...func(*config.Application)) config.Application {
	cfg := config.Default()
	cfg.Assets.Bucket = "grace-assets"
	for _, m := range mutate {
		m(&cfg)
	}
	return cfg
}

func newTestApp(t *testing.T, mutate ...func(*config.Application)) *App {
	t.Helper()
	app, err := NewApp(
		testConfig(mutate...),
		StaticAssets{Bucket: "grace-assets", Prefix: "assets/"},
		WithClock(func() time.Time { return testNow }),
	)
	require.NoError(t, err)
	return app
}

func resource(t *testing.T, app *App, stack, typ, name string) *construct.Resource {
	t.Helper()
	s, ok := app.Stack(stack)
	require.True(t, ok, "stack %s", stack)
	r, err := s.Graph().Vertex(s.Id(typ, name))
	require.NoError(t, err)
	return r
}

func property(t *testing.T, r *construct.Resource, path string) any {
	t.Helper()
	v, err := r.GetProperty(path)
	require.NoError(t, err)
	return v
}

func hasResource(app *App, stack, typ, name string) bool {
	s, ok := app.Stack(stack)
	if !ok {
		return false
	}
	_, err := s.Graph().Vertex(s.Id(typ, name))
	return err == nil
}

func TestNewApp_StackOrder(t *testing.T) {
	app := newTestApp(t)

	var names []string
	for _, s := range app.Stacks() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{
		NetworkStackName, DatabaseStackName, StorageStackName, EventBusStackName,
		ComputeStackName, ApiStackName, WorkflowStackName,
	}, names)

	for i, s := range app.Stacks() {
		deps, err := s.Dependencies()
		require.NoError(t, err)
		for _, dep := range deps {
			assert.Less(t, slices.Index(names, dep), i, "%s must come after %s", s.Name, dep)
		}
	}
}

func TestNewApp_Dependencies(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		stack string
		want  []string
	}{
		{NetworkStackName, nil},
		{DatabaseStackName, []string{NetworkStackName}},
		{StorageStackName, nil},
		{EventBusStackName, nil},
		{ComputeStackName, []string{DatabaseStackName, NetworkStackName}},
		{ApiStackName, []string{StorageStackName}},
		{WorkflowStackName, []string{ComputeStackName, EventBusStackName, StorageStackName}},
	}
	for _, tt := range tests {
		t.Run(tt.stack, func(t *testing.T) {
			s, ok := app.Stack(tt.stack)
			require.True(t, ok)
			deps, err := s.Dependencies()
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, deps)
			} else {
				assert.Equal(t, tt.want, deps)
			}
		})
	}
}

func TestNewApp_Production(t *testing.T) {
	tests := []struct {
		name               string
		production         bool
		deletionPolicy     string
		deletionProtection bool
		workflowName       string
		isProduction       string
		environment        string
	}{
		{
			name:               "development",
			deletionPolicy:     aws.DeletionPolicyDelete,
			deletionProtection: false,
			workflowName:       "grace-audit-workflow-dev",
			isProduction:       "false",
			environment:        "development",
		},
		{
			name:               "production",
			production:         true,
			deletionPolicy:     aws.DeletionPolicyRetain,
			deletionProtection: true,
			workflowName:       "grace-audit-workflow-prod",
			isProduction:       "true",
			environment:        "production",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, func(cfg *config.Application) { cfg.Production = tt.production })

			db := resource(t, app, DatabaseStackName, aws.RDS_INSTANCE_TYPE, "GraceDatabase")
			assert.Equal(t, tt.deletionProtection, db.Properties["DeletionProtection"])

			data := resource(t, app, StorageStackName, aws.S3_BUCKET_TYPE, "GraceDataBucket")
			assert.Equal(t, tt.deletionPolicy, data.Properties["DeletionPolicy"])
			uploads := resource(t, app, StorageStackName, aws.S3_BUCKET_TYPE, "GraceUploadsBucket")
			assert.Equal(t, tt.deletionPolicy, uploads.Properties["DeletionPolicy"])
			ledger := resource(t, app, StorageStackName, aws.S3_BUCKET_TYPE, "GraceLedgerBucket")
			assert.Equal(t, aws.DeletionPolicyRetain, ledger.Properties["DeletionPolicy"], "the ledger is always retained")

			pool := resource(t, app, ApiStackName, aws.COGNITO_USER_POOL_TYPE, "GraceUserPool")
			assert.Equal(t, tt.deletionPolicy, pool.Properties["DeletionPolicy"])

			tagger := resource(t, app, StorageStackName, aws.CUSTOM_RESOURCE_TYPE, "BucketTagUpdater")
			assert.Equal(t, tt.isProduction, tagger.Properties["IsProduction"])
			assert.Equal(t, "2024-03-01T12:30:00.000Z", tagger.Properties["UpdateTimestamp"])

			machine := resource(t, app, WorkflowStackName, aws.STATE_MACHINE_TYPE, "AuditWorkflow")
			assert.Equal(t, tt.workflowName, machine.Properties["StateMachineName"])

			storage, _ := app.Stack(StorageStackName)
			var env any
			for _, o := range storage.Outputs {
				if o.Name == "Environment" {
					env = o.Value
				}
			}
			assert.Equal(t, tt.environment, env)
		})
	}
}

func TestNewApp_Network(t *testing.T) {
	tests := []struct {
		name   string
		maxAzs int
		nats   int
	}{
		{name: "defaults", maxAzs: 2, nats: 1},
		{name: "three azs", maxAzs: 3, nats: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, func(cfg *config.Application) {
				cfg.Network.MaxAzs = tt.maxAzs
				cfg.Network.NatGateways = tt.nats
			})
			s, _ := app.Stack(NetworkStackName)
			counts := make(map[string]int)
			resources, err := construct.Resources(s.Graph())
			require.NoError(t, err)
			for _, r := range resources {
				counts[r.ID.Type]++
			}
			assert.Equal(t, 3*tt.maxAzs, counts[aws.SUBNET_TYPE])
			assert.Equal(t, tt.nats, counts[aws.NAT_GATEWAY_TYPE])
			assert.Equal(t, tt.nats, counts[aws.ELASTIC_IP_TYPE])
			// Public and private subnets have a default route; isolated subnets do not.
			assert.Equal(t, 2*tt.maxAzs, counts[aws.ROUTE_TYPE])

			private := resource(t, app, NetworkStackName, aws.ROUTE_TYPE, "PrivateSubnet1DefaultRoute")
			assert.Equal(t, aws.NAT_GATEWAY_TYPE, private.Properties["NatGatewayId"].(construct.ResourceId).Type)
		})
	}
}

func TestNewApp_ImportedResources(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Application) {
		cfg.Storage.ImportDataBucket = true
		cfg.EventBus.Import = true
	})

	assert.False(t, hasResource(app, StorageStackName, aws.S3_BUCKET_TYPE, "GraceDataBucket"))
	assert.False(t, hasResource(app, EventBusStackName, aws.EVENT_BUS_TYPE, "GraceAuditEventBus"))
	assert.False(t, hasResource(app, EventBusStackName, aws.EVENT_ARCHIVE_TYPE, "GraceEventArchive"))

	tagger := resource(t, app, StorageStackName, aws.CUSTOM_RESOURCE_TYPE, "BucketTagUpdater")
	assert.Equal(t, "grace-kirocomp-data", tagger.Properties["BucketName"])

	rule := resource(t, app, WorkflowStackName, aws.EVENT_RULE_TYPE, "S3ObjectCreatedRule")
	assert.Equal(t, "grace-audit-events", rule.Properties["EventBusName"])
	assert.Equal(t, []any{"grace-kirocomp-data"}, property(t, rule, "EventPattern.detail.bucket.name"))

	assert.True(t, hasResource(app, WorkflowStackName, aws.EVENT_RULE_TYPE, "S3ObjectCreatedForwardRule"),
		"an imported custom bus still needs S3 events forwarded from the default bus")
}

func TestNewApp_DefaultBus(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Application) { cfg.EventBus.Name = aws.DefaultEventBus })

	assert.False(t, hasResource(app, EventBusStackName, aws.EVENT_BUS_TYPE, "GraceAuditEventBus"))
	assert.False(t, hasResource(app, WorkflowStackName, aws.EVENT_RULE_TYPE, "S3ObjectCreatedForwardRule"))
	rule := resource(t, app, WorkflowStackName, aws.EVENT_RULE_TYPE, "S3ObjectCreatedRule")
	assert.Equal(t, "default", rule.Properties["EventBusName"])
}

func TestNewApp_CrossStackReferences(t *testing.T) {
	app := newTestApp(t)

	logger := resource(t, app, ComputeStackName, aws.LAMBDA_FUNCTION_TYPE, "ProvenanceLoggerFunction")
	assert.Equal(t, "ProvenanceLogger", logger.Properties["FunctionName"])
	assert.Equal(t, 256, logger.Properties["MemorySize"])
	env := property(t, logger, "Environment.Variables").(map[string]any)
	assert.Equal(t, DatabaseStackName, env["DB_SECRET_ARN"].(construct.ResourceId).Namespace)
	assert.Equal(t, construct.PropertyRef{
		Resource: construct.ResourceId{Provider: "aws", Type: aws.RDS_INSTANCE_TYPE, Namespace: DatabaseStackName, Name: "GraceDatabase"},
		Property: "Endpoint.Address",
	}, env["DB_ENDPOINT"])

	compute, _ := app.Stack(ComputeStackName)
	require.Len(t, compute.Outputs, 1)
	assert.Equal(t, ProvenanceLoggerExport, compute.Outputs[0].ExportName)

	dbInit := resource(t, app, DatabaseStackName, aws.CUSTOM_RESOURCE_TYPE, "DbInit")
	assert.Equal(t, "1709296200000", dbInit.Properties["Version"])
	assert.Equal(t, SchemaFilePath, dbInit.Properties["SqlFilePath"])
	db, _ := app.Stack(DatabaseStackName)
	deps, err := construct.DirectDownstreamDependencies(db.Graph(), dbInit.ID)
	require.NoError(t, err)
	assert.Contains(t, deps, db.Id(aws.RDS_INSTANCE_TYPE, "GraceDatabase"))
}

func TestNewApp_FunctionCode(t *testing.T) {
	app := newTestApp(t)
	fn := resource(t, app, ApiStackName, aws.LAMBDA_FUNCTION_TYPE, "ChainVerifierFunction")
	assert.Equal(t, map[string]any{"S3Bucket": "grace-assets", "S3Key": "assets/chainverifier.zip"}, fn.Properties["Code"])
}

// dbIngressSources returns the security groups admitted to the database group on the database port.
func dbIngressSources(t *testing.T, app *App) []construct.ResourceId {
	t.Helper()
	db, _ := app.Stack(DatabaseStackName)
	dbSg := db.Id(aws.SECURITY_GROUP_TYPE, "DatabaseSecurityGroup")
	var sources []construct.ResourceId
	for _, s := range app.Stacks() {
		resources, err := construct.Resources(s.Graph())
		require.NoError(t, err)
		for _, r := range resources {
			if r.ID.Type != aws.SECURITY_GROUP_INGRESS_TYPE {
				continue
			}
			group, ok := r.Properties["GroupId"].(construct.PropertyRef)
			if !ok || group.Resource != dbSg {
				continue
			}
			if r.Properties["FromPort"] != app.Config.Database.Port || r.Properties["ToPort"] != app.Config.Database.Port {
				continue
			}
			source, ok := r.Properties["SourceSecurityGroupId"].(construct.PropertyRef)
			require.True(t, ok, "%s has no source group", r.ID)
			sources = append(sources, source.Resource)
		}
	}
	return sources
}

func TestNewApp_DatabaseReachability(t *testing.T) {
	app := newTestApp(t)
	sources := dbIngressSources(t, app)

	tests := []struct {
		stack    string
		function string
	}{
		{DatabaseStackName, "DbInitFunction"},
		{ComputeStackName, "ProvenanceLoggerFunction"},
	}
	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			fn := resource(t, app, tt.stack, aws.LAMBDA_FUNCTION_TYPE, tt.function)
			groups := property(t, fn, "VpcConfig.SecurityGroupIds").([]any)
			require.NotEmpty(t, groups)
			admitted := false
			for _, g := range groups {
				if slices.Contains(sources, g.(construct.ResourceId)) {
					admitted = true
				}
			}
			assert.True(t, admitted, "no ingress rule admits %v on port %d", groups, app.Config.Database.Port)
		})
	}

	db, _ := app.Stack(DatabaseStackName)
	deps, err := construct.DirectDownstreamDependencies(db.Graph(), db.Id(aws.CUSTOM_RESOURCE_TYPE, "DbInit"))
	require.NoError(t, err)
	assert.Contains(t, deps, db.Id(aws.SECURITY_GROUP_INGRESS_TYPE, "DatabaseIngressFromDbInit"))
}

func TestApp_SortStacks(t *testing.T) {
	tests := []struct {
		name    string
		stacks  func() []*Stack
		wantErr string
		want    []string
	}{
		{
			name: "reference order",
			stacks: func() []*Stack {
				a, b := NewStack("A", ""), NewStack("B", "")
				bucket := a.Add(aws.S3_BUCKET_TYPE, "Bucket", construct.Properties{})
				b.Add(aws.S3_BUCKET_POLICY_TYPE, "Policy", construct.Properties{"Bucket": bucket})
				return []*Stack{b, a}
			},
			want: []string{"A", "B"},
		},
		{
			name: "cycle through references",
			stacks: func() []*Stack {
				a, b := NewStack("A", ""), NewStack("B", "")
				bucketA := a.Add(aws.S3_BUCKET_TYPE, "Bucket", construct.Properties{})
				bucketB := b.Add(aws.S3_BUCKET_TYPE, "Bucket", construct.Properties{})
				a.Add(aws.S3_BUCKET_POLICY_TYPE, "Policy", construct.Properties{"Bucket": bucketB})
				b.Add(aws.S3_BUCKET_POLICY_TYPE, "Policy", construct.Properties{"Bucket": bucketA})
				return []*Stack{a, b}
			},
			wantErr: "cannot depend on",
		},
		{
			name: "cycle through explicit dependencies",
			stacks: func() []*Stack {
				a, b := NewStack("A", ""), NewStack("B", "")
				a.AddDependency(b)
				b.AddDependency(a)
				return []*Stack{a, b}
			},
			wantErr: "cannot depend on",
		},
		{
			name: "unknown stack",
			stacks: func() []*Stack {
				a, other := NewStack("A", ""), NewStack("Other", "")
				bucket := other.Add(aws.S3_BUCKET_TYPE, "Bucket", construct.Properties{})
				a.AddOutput("OtherBucket", bucket, "")
				return []*Stack{a}
			},
			wantErr: "stack A depends on unknown stack Other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &App{stacks: make(map[string]*Stack)}
			for _, s := range tt.stacks() {
				require.NoError(t, app.add(s))
			}
			order, err := app.sortStacks()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, order)
		})
	}
}

type missingAssets struct{}

func (missingAssets) Location(handler string) (string, string, error) {
	return "", "", errors.New("not bundled")
}

func TestNewApp_Errors(t *testing.T) {
	_, err := NewApp(testConfig(func(cfg *config.Application) { cfg.Network.Cidr = "10.0.0.0/24" }), StaticAssets{})
	assert.ErrorContains(t, err, "network.cidr")

	_, err = NewApp(testConfig(), missingAssets{})
	assert.ErrorContains(t, err, "not bundled")
}

func TestNewApp_Tags(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Application) { cfg.Tags = map[string]string{"CostCenter": "audit"} })
	for _, s := range app.Stacks() {
		assert.Equal(t, map[string]string{
			"Project":     "GRACE",
			"ManagedBy":   "CDK",
			"Environment": "Development",
			"CostCenter":  "audit",
		}, s.Tags, s.Name)
	}
}
