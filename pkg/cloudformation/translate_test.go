package cloudformation

import (
	"errors"
	"testing"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/knowledgebase"
	"github.com/grace-platform/grace/pkg/provider/aws"
	"github.com/grace-platform/grace/pkg/stacks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadKB(t *testing.T) *knowledgebase.KnowledgeBase {
	t.Helper()
	kb, err := knowledgebase.Load()
	require.NoError(t, err)
	return kb
}

type testStacks struct {
	producer, consumer *stacks.Stack

	bucket, role, fn, sg construct.ResourceId
}

// newTestStacks declares a producer stack with a bucket and function, and a consumer stack that
// uses the producer's bucket name and function arn.
func newTestStacks(t *testing.T) testStacks {
	t.Helper()
	ts := testStacks{
		producer: stacks.NewStack("Producer", "produces things"),
		consumer: stacks.NewStack("Consumer", "consumes things"),
	}
	p := ts.producer
	ts.bucket = p.Add(aws.S3_BUCKET_TYPE, "DataBucket", construct.Properties{
		"BucketName": "data",
		"Tags":       []any{aws.Tag("Project", "Mine")},
	})
	ts.role = p.Add(aws.IAM_ROLE_TYPE, "FnRole", construct.Properties{
		"AssumeRolePolicyDocument": map[string]any{"Version": "2012-10-17"},
	})
	ts.sg = p.Add(aws.SECURITY_GROUP_TYPE, "Sg", construct.Properties{"GroupDescription": "sg"})
	ts.fn = p.Add(aws.LAMBDA_FUNCTION_TYPE, "Fn", construct.Properties{
		"Code": map[string]any{"S3Bucket": "assets", "S3Key": "fn.zip"},
		"Role": aws.Arn(ts.role),
		"Environment": map[string]any{
			"Variables": map[string]any{"BUCKET": ts.bucket},
		},
	})
	p.DependsOn(ts.fn, ts.sg)
	p.Tags["Project"] = "GRACE"
	p.Tags["ManagedBy"] = "CDK"
	require.NoError(t, p.Err())

	c := ts.consumer
	c.Add(aws.CUSTOM_RESOURCE_TYPE, "Invoke", construct.Properties{
		"ServiceToken": aws.Arn(ts.fn),
		"Bucket":       ts.bucket,
		"BucketArn":    construct.PropertyRef{Resource: ts.bucket, Property: "BucketName"},
	})
	c.AddOutput("ProducerFunction", aws.Arn(ts.fn), "")
	require.NoError(t, c.Err())
	return ts
}

func translateAll(t *testing.T, ts testStacks) (*Translator, map[string]*Template) {
	t.Helper()
	tr := NewTranslator(loadKB(t))
	all := map[string]*stacks.Stack{ts.producer.Name: ts.producer, ts.consumer.Name: ts.consumer}
	for _, s := range all {
		require.NoError(t, tr.AddStack(s))
	}
	for _, s := range all {
		require.NoError(t, tr.CollectExports(s, all))
	}
	templates := make(map[string]*Template)
	for name, s := range all {
		tmpl, err := tr.Translate(s)
		require.NoError(t, err)
		templates[name] = tmpl
	}
	return tr, templates
}

func TestTranslate_References(t *testing.T) {
	ts := newTestStacks(t)
	_, templates := translateAll(t, ts)
	producer := templates["Producer"]

	fn := producer.Resources["Fn"]
	require.NotNil(t, fn)
	assert.Equal(t, "AWS::Lambda::Function", fn.Type)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"FnRole", "Arn"}}, fn.Properties["Role"])
	assert.Equal(t,
		map[string]any{"Variables": map[string]any{"BUCKET": map[string]any{"Ref": "DataBucket"}}},
		fn.Properties["Environment"],
	)
	assert.Equal(t, []string{"Sg"}, fn.DependsOn, "references are implied and must not be repeated in DependsOn")
}

func TestTranslate_CrossStack(t *testing.T) {
	ts := newTestStacks(t)
	tr, templates := translateAll(t, ts)

	invoke := templates["Consumer"].Resources["Invoke"]
	require.NotNil(t, invoke)
	assert.Equal(t, map[string]any{"Fn::ImportValue": "Producer:FnArn"}, invoke.Properties["ServiceToken"])
	// A property ref to the ref attribute is the same export as the plain Ref.
	assert.Equal(t, map[string]any{"Fn::ImportValue": "Producer:DataBucketRef"}, invoke.Properties["Bucket"])
	assert.Equal(t, invoke.Properties["Bucket"], invoke.Properties["BucketArn"])
	assert.Len(t, tr.Exports, 2)

	outputs := templates["Producer"].Outputs
	require.Contains(t, outputs, "ExportFnArn")
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Fn", "Arn"}}, outputs["ExportFnArn"].Value)
	assert.Equal(t, "Producer:FnArn", outputs["ExportFnArn"].Export.Name)
	require.Contains(t, outputs, "ExportDataBucketRef")
	assert.Equal(t, map[string]any{"Ref": "DataBucket"}, outputs["ExportDataBucketRef"].Value)

	assert.Equal(t,
		map[string]any{"Fn::ImportValue": "Producer:FnArn"},
		templates["Consumer"].Outputs["ProducerFunction"].Value,
	)
}

func TestTranslate_ReusesDeclaredExport(t *testing.T) {
	ts := newTestStacks(t)
	ts.producer.AddExport("FunctionArn", aws.Arn(ts.fn), "", "FixedFunctionArn")
	_, templates := translateAll(t, ts)

	invoke := templates["Consumer"].Resources["Invoke"]
	assert.Equal(t, map[string]any{"Fn::ImportValue": "FixedFunctionArn"}, invoke.Properties["ServiceToken"])

	outputs := templates["Producer"].Outputs
	assert.NotContains(t, outputs, "ExportFnArn")
	require.Contains(t, outputs, "FunctionArn")
	assert.Equal(t, "FixedFunctionArn", outputs["FunctionArn"].Export.Name)
}

func TestTranslate_Policies(t *testing.T) {
	tests := []struct {
		name          string
		props         construct.Properties
		wantDeletion  string
		wantReplace   string
		wantRemaining bool
	}{
		{
			name:         "template default",
			props:        construct.Properties{},
			wantDeletion: "Retain",
			wantReplace:  "Retain",
		},
		{
			name:         "deletion policy applies to replacement",
			props:        construct.Properties{"DeletionPolicy": "Delete"},
			wantDeletion: "Delete",
			wantReplace:  "Delete",
		},
		{
			name:         "explicit replace policy",
			props:        construct.Properties{"DeletionPolicy": "Delete", "UpdateReplacePolicy": "Retain"},
			wantDeletion: "Delete",
			wantReplace:  "Retain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stacks.NewStack("Only", "")
			s.Add(aws.S3_BUCKET_TYPE, "Bucket", tt.props)
			tr := NewTranslator(loadKB(t))
			require.NoError(t, tr.AddStack(s))
			tmpl, err := tr.Translate(s)
			require.NoError(t, err)

			r := tmpl.Resources["Bucket"]
			assert.Equal(t, tt.wantDeletion, r.DeletionPolicy)
			assert.Equal(t, tt.wantReplace, r.UpdateReplacePolicy)
			assert.NotContains(t, r.Properties, "DeletionPolicy")
			assert.NotContains(t, r.Properties, "UpdateReplacePolicy")
			assert.Nil(t, tmpl.Outputs)
		})
	}
}

func TestTranslate_Tags(t *testing.T) {
	ts := newTestStacks(t)
	_, templates := translateAll(t, ts)
	producer := templates["Producer"]

	assert.Equal(t, []any{
		map[string]any{"Key": "Project", "Value": "Mine"},
		map[string]any{"Key": "ManagedBy", "Value": "CDK"},
	}, producer.Resources["DataBucket"].Properties["Tags"], "resource tags take precedence")

	assert.Equal(t, []any{
		map[string]any{"Key": "ManagedBy", "Value": "CDK"},
		map[string]any{"Key": "Project", "Value": "GRACE"},
	}, producer.Resources["Sg"].Properties["Tags"])

	assert.NotContains(t, templates["Consumer"].Resources["Invoke"].Properties, "Tags")
}

func TestMergeTags_Map(t *testing.T) {
	merged, err := mergeTags(
		map[string]any{"Project": "Mine"},
		map[string]string{"Project": "GRACE", "Environment": "Development"},
		knowledgebase.TagFormatMap,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Project": "Mine", "Environment": "Development"}, merged)

	_, err = mergeTags("nope", map[string]string{"a": "b"}, knowledgebase.TagFormatList)
	assert.Error(t, err)
}

func TestTranslate_Intrinsics(t *testing.T) {
	s := stacks.NewStack("Only", "")
	vpc := s.Add(aws.VPC_TYPE, "Vpc", construct.Properties{"CidrBlock": "10.0.0.0/16"})
	s.Add(aws.SUBNET_TYPE, "Subnet", construct.Properties{
		"VpcId": vpc,
		"CidrBlock": intrinsic.Select{
			Index: 1,
			List:  intrinsic.Cidr{IpBlock: construct.PropertyRef{Resource: vpc, Property: "CidrBlock"}, Count: 4, CidrBits: 8},
		},
		"AvailabilityZone": intrinsic.Select{Index: 0, List: intrinsic.GetAZs{}},
		"Name":             intrinsic.Join{Delimiter: "-", Values: []any{"grace", intrinsic.AccountId, intrinsic.Region}},
		"Missing":          nil,
	})
	require.NoError(t, s.Err())

	tr := NewTranslator(loadKB(t))
	require.NoError(t, tr.AddStack(s))
	tmpl, err := tr.Translate(s)
	require.NoError(t, err)

	props := tmpl.Resources["Subnet"].Properties
	assert.Equal(t, map[string]any{"Ref": "Vpc"}, props["VpcId"])
	assert.Equal(t, map[string]any{"Fn::Select": []any{1, map[string]any{
		"Fn::Cidr": []any{map[string]any{"Fn::GetAtt": []any{"Vpc", "CidrBlock"}}, 4, 8},
	}}}, props["CidrBlock"])
	assert.Equal(t, map[string]any{"Fn::Select": []any{0, map[string]any{"Fn::GetAZs": ""}}}, props["AvailabilityZone"])
	assert.Equal(t, map[string]any{"Fn::Join": []any{"-", []any{
		"grace", map[string]any{"Ref": "AWS::AccountId"}, map[string]any{"Ref": "AWS::Region"},
	}}}, props["Name"])
	assert.NotContains(t, props, "Missing")
}

func TestTranslate_Errors(t *testing.T) {
	t.Run("missing required property", func(t *testing.T) {
		s := stacks.NewStack("Only", "")
		s.Add(aws.LAMBDA_FUNCTION_TYPE, "Fn", construct.Properties{})
		tr := NewTranslator(loadKB(t))
		require.NoError(t, tr.AddStack(s))
		_, err := tr.Translate(s)
		assert.Error(t, err)
	})
	t.Run("unknown attribute", func(t *testing.T) {
		s := stacks.NewStack("Only", "")
		b := s.Add(aws.S3_BUCKET_TYPE, "Bucket", construct.Properties{})
		s.AddOutput("Nope", construct.PropertyRef{Resource: b, Property: "Nope"}, "")
		tr := NewTranslator(loadKB(t))
		require.NoError(t, tr.AddStack(s))
		_, err := tr.Translate(s)
		assert.ErrorContains(t, err, "no attribute")
	})
	t.Run("duplicate output", func(t *testing.T) {
		s := stacks.NewStack("Only", "")
		b := s.Add(aws.S3_BUCKET_TYPE, "Bucket", construct.Properties{})
		s.AddOutput("Name", b, "")
		s.AddOutput("Name", b, "")
		tr := NewTranslator(loadKB(t))
		require.NoError(t, tr.AddStack(s))
		_, err := tr.Translate(s)
		assert.ErrorContains(t, err, "duplicate output")
	})
	t.Run("unknown producer", func(t *testing.T) {
		ts := newTestStacks(t)
		tr := NewTranslator(loadKB(t))
		require.NoError(t, tr.AddStack(ts.producer))
		require.NoError(t, tr.AddStack(ts.consumer))
		err := tr.CollectExports(ts.consumer, map[string]*stacks.Stack{"Consumer": ts.consumer})
		assert.ErrorContains(t, err, "unknown stack Producer")
	})
	t.Run("unwalkable value", func(t *testing.T) {
		s := stacks.NewStack("Only", "")
		s.AddOutput("Broken", brokenValue{}, "")
		tr := NewTranslator(loadKB(t))
		require.NoError(t, tr.AddStack(s))
		err := tr.CollectExports(s, map[string]*stacks.Stack{"Only": s})
		assert.ErrorContains(t, err, "could not walk output Broken")
		assert.ErrorContains(t, err, "cannot walk")
	})
}

type brokenValue struct{}

func (brokenValue) WalkValues(fn func(v any) error) error {
	return errors.New("cannot walk")
}

func TestExportName(t *testing.T) {
	assert.Equal(t, "Stack:BucketRef", ExportName("Stack", "Bucket", ""))
	assert.Equal(t, "Stack:DbEndpointAddress", ExportName("Stack", "Db", "Endpoint.Address"))
}
