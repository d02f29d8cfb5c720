package aws

import (
	"testing"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder {
	return NewBuilder(construct.NewGraph(), "TestStack")
}

func dependencies(t *testing.T, b *Builder, id construct.ResourceId) []construct.ResourceId {
	t.Helper()
	deps, err := construct.DirectDownstreamDependencies(b.Graph(), id)
	require.NoError(t, err)
	return deps
}

func TestBuilder_Add(t *testing.T) {
	b := newTestBuilder()
	vpc := b.Vpc("Vpc", "10.0.0.0/16")
	subnet := b.Subnet("PublicSubnet1", vpc, "10.0.0.0/24", 0, SubnetPublic)
	require.NoError(t, b.Err())

	assert.Equal(t, construct.ResourceId{Provider: "aws", Type: VPC_TYPE, Namespace: "TestStack", Name: "Vpc"}, vpc)
	assert.Equal(t, []construct.ResourceId{vpc}, dependencies(t, b, subnet))

	r, err := b.Graph().Vertex(subnet)
	require.NoError(t, err)
	assert.Equal(t, true, r.Properties["MapPublicIpOnLaunch"])
	assert.Equal(t, intrinsic.Select{Index: 0, List: intrinsic.GetAZs{}}, r.Properties["AvailabilityZone"])
}

func TestBuilder_DuplicateIsError(t *testing.T) {
	b := newTestBuilder()
	b.Vpc("Vpc", "10.0.0.0/16")
	b.Vpc("Vpc", "10.1.0.0/16")
	assert.Error(t, b.Err())
}

func TestBuilder_ExternalReferencesHaveNoEdge(t *testing.T) {
	b := newTestBuilder()
	other := construct.ResourceId{Provider: "aws", Type: VPC_TYPE, Namespace: "OtherStack", Name: "Vpc"}
	sg := b.SecurityGroup("Sg", other, "test")
	require.NoError(t, b.Err())
	assert.Empty(t, dependencies(t, b, sg))
}

func TestRoute_Target(t *testing.T) {
	tests := []struct {
		name    string
		target  construct.ResourceId
		wantKey string
	}{
		{
			name:    "internet gateway",
			target:  construct.ResourceId{Provider: "aws", Type: INTERNET_GATEWAY_TYPE, Namespace: "TestStack", Name: "Igw"},
			wantKey: "GatewayId",
		},
		{
			name:    "nat gateway",
			target:  construct.ResourceId{Provider: "aws", Type: NAT_GATEWAY_TYPE, Namespace: "TestStack", Name: "Nat"},
			wantKey: "NatGatewayId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder()
			vpc := b.Vpc("Vpc", "10.0.0.0/16")
			table := b.RouteTable("Table", vpc)
			route := b.Route("Route", table, tt.target)
			require.NoError(t, b.Err())

			r, err := b.Graph().Vertex(route)
			require.NoError(t, err)
			assert.Equal(t, tt.target, r.Properties[tt.wantKey])
			assert.Equal(t, "0.0.0.0/0", r.Properties["DestinationCidrBlock"])
		})
	}
}

func TestS3Bucket(t *testing.T) {
	b := newTestBuilder()
	bucket := b.S3Bucket("Ledger", S3BucketConfig{
		BucketName:     "Grace_Ledger",
		ObjectLock:     &ObjectLockConfig{Mode: ObjectLockGovernance, Days: 365},
		DeletionPolicy: DeletionPolicyRetain,
	})
	require.NoError(t, b.Err())

	r, err := b.Graph().Vertex(bucket)
	require.NoError(t, err)
	assert.Equal(t, "grace-ledger", r.Properties["BucketName"])
	assert.Equal(t, map[string]any{"Status": "Enabled"}, r.Properties["VersioningConfiguration"], "object lock requires versioning")
	mode, err := r.GetProperty("ObjectLockConfiguration.Rule.DefaultRetention.Mode")
	require.NoError(t, err)
	assert.Equal(t, "GOVERNANCE", mode)
	assert.Equal(t, "Retain", r.Properties["DeletionPolicy"])
}

func TestAddBucketNotification(t *testing.T) {
	b := newTestBuilder()
	bucket := b.S3Bucket("Uploads", S3BucketConfig{BucketName: "grace-uploads", Versioned: true})
	role := b.LambdaExecutionRole("HandlerRole", false)
	fn := b.LambdaFunction("Handler", FunctionConfig{Role: role, Code: Code{S3Bucket: "assets", S3Key: "k.zip"}})
	perm := b.LambdaPermission("HandlerPermission", fn, S3ServicePrincipal, BucketArnForName("grace-uploads"))
	b.AddBucketNotification(bucket, LambdaNotification{Event: "s3:ObjectCreated:*", Function: fn}, perm)
	require.NoError(t, b.Err())

	r, err := b.Graph().Vertex(bucket)
	require.NoError(t, err)
	cfgs, err := r.GetProperty("NotificationConfiguration.LambdaConfigurations")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"Event": "s3:ObjectCreated:*", "Function": Arn(fn)}}, cfgs)
	assert.ElementsMatch(t, []construct.ResourceId{fn, perm}, dependencies(t, b, bucket))

	p, err := b.Graph().Vertex(perm)
	require.NoError(t, err)
	assert.Equal(t, intrinsic.AccountId, p.Properties["SourceAccount"])
}

func TestLambdaFunction_Defaults(t *testing.T) {
	b := newTestBuilder()
	role := b.LambdaExecutionRole("Role", true)
	sg := b.SecurityGroup("Sg", "vpc-123", "fn")
	fn := b.LambdaFunction("Fn", FunctionConfig{
		FunctionName:   "Provenance Logger!",
		Role:           role,
		Code:           Code{S3Bucket: "assets", S3Key: "assets/abc.zip"},
		Subnets:        []any{"subnet-1"},
		SecurityGroups: []construct.ResourceId{sg},
	})
	require.NoError(t, b.Err())

	r, err := b.Graph().Vertex(fn)
	require.NoError(t, err)
	assert.Equal(t, "ProvenanceLogger", r.Properties["FunctionName"])
	assert.Equal(t, "bootstrap", r.Properties["Handler"])
	assert.Equal(t, DefaultRuntime, r.Properties["Runtime"])
	assert.Equal(t, []any{"arm64"}, r.Properties["Architectures"])
	assert.ElementsMatch(t, []construct.ResourceId{role, sg}, dependencies(t, b, fn))

	rr, err := b.Graph().Vertex(role)
	require.NoError(t, err)
	assert.Len(t, rr.Properties["ManagedPolicyArns"], 2)
}

func TestFunctionLogGroup_Name(t *testing.T) {
	b := newTestBuilder()
	role := b.LambdaExecutionRole("Role", false)
	named := b.LambdaFunction("Named", FunctionConfig{FunctionName: "ProvenanceLogger", Role: role})
	unnamed := b.LambdaFunction("Unnamed", FunctionConfig{Role: role})
	namedLogs := b.FunctionLogGroup("NamedLogs", named, 7, "")
	unnamedLogs := b.FunctionLogGroup("UnnamedLogs", unnamed, 7, DeletionPolicyDelete)
	require.NoError(t, b.Err())

	r, err := b.Graph().Vertex(namedLogs)
	require.NoError(t, err)
	assert.Equal(t, "/aws/lambda/ProvenanceLogger", r.Properties["LogGroupName"])

	r, err = b.Graph().Vertex(unnamedLogs)
	require.NoError(t, err)
	assert.Equal(t, intrinsic.Join{Values: []any{"/aws/lambda/", unnamed}}, r.Properties["LogGroupName"])
	assert.Equal(t, []construct.ResourceId{unnamed}, dependencies(t, b, unnamedLogs))
}

func TestPolicyDocument(t *testing.T) {
	doc := PolicyDocument(
		Allow([]any{"arn:aws:s3:::bucket"}, "s3:GetBucketTagging", "s3:PutBucketTagging"),
		Allow(nil, "logs:CreateLogGroup"),
	)
	assert.Equal(t, map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Effect":   "Allow",
				"Action":   []any{"s3:GetBucketTagging", "s3:PutBucketTagging"},
				"Resource": "arn:aws:s3:::bucket",
			},
			map[string]any{
				"Effect": "Allow",
				"Action": "logs:CreateLogGroup",
			},
		},
	}, doc)
}

func TestApiMethod_Authorizer(t *testing.T) {
	b := newTestBuilder()
	pool := b.UserPool("Pool", UserPoolConfig{SelfSignUp: true})
	api := b.RestApi("Api", "GRACE API", "")
	auth := b.CognitoAuthorizer("Authorizer", api, pool)
	open := b.ApiMethod("Open", MethodConfig{Api: api, Resource: RootResource(api), HttpMethod: "GET"})
	secured := b.ApiMethod("Secured", MethodConfig{Api: api, Resource: RootResource(api), HttpMethod: "POST", Authorizer: auth})
	deployment := b.ApiDeployment("Deployment", api, "", open, secured)
	require.NoError(t, b.Err())

	r, err := b.Graph().Vertex(open)
	require.NoError(t, err)
	assert.Equal(t, "NONE", r.Properties["AuthorizationType"])

	r, err = b.Graph().Vertex(secured)
	require.NoError(t, err)
	assert.Equal(t, "COGNITO_USER_POOLS", r.Properties["AuthorizationType"])
	assert.Equal(t, auth, r.Properties["AuthorizerId"])

	assert.ElementsMatch(t, []construct.ResourceId{api, open, secured}, dependencies(t, b, deployment))
}

func TestDeletionPolicyFor(t *testing.T) {
	assert.Equal(t, DeletionPolicyRetain, DeletionPolicyFor("RETAIN"))
	assert.Equal(t, DeletionPolicyDelete, DeletionPolicyFor("DESTROY"))
}
