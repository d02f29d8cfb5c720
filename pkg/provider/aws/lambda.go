package aws

import (
	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/sanitization"
	awssanitizer "github.com/grace-platform/grace/pkg/sanitization/aws"
)

type (
	FunctionConfig struct {
		FunctionName string
		Description  string
		Role         construct.ResourceId
		Code         Code
		// Handler defaults to `bootstrap`, the binary name of custom runtimes.
		Handler        string
		Runtime        string
		Architecture   string
		Timeout        int
		MemorySize     int
		Environment    map[string]any
		Subnets        []any
		SecurityGroups []construct.ResourceId
	}

	// Code is the location of a function's deployment package.
	Code struct {
		S3Bucket any
		S3Key    any
	}
)

const (
	DefaultRuntime      = "provided.al2023"
	DefaultArchitecture = "arm64"
)

func (b *Builder) LambdaFunction(name string, cfg FunctionConfig) construct.ResourceId {
	handler := cfg.Handler
	if handler == "" {
		handler = "bootstrap"
	}
	runtime := cfg.Runtime
	if runtime == "" {
		runtime = DefaultRuntime
	}
	arch := cfg.Architecture
	if arch == "" {
		arch = DefaultArchitecture
	}
	props := construct.Properties{
		"Role":          Arn(cfg.Role),
		"Handler":       handler,
		"Runtime":       runtime,
		"Architectures": []any{arch},
		"Code": map[string]any{
			"S3Bucket": cfg.Code.S3Bucket,
			"S3Key":    cfg.Code.S3Key,
		},
	}
	if cfg.FunctionName != "" {
		props["FunctionName"] = awssanitizer.LambdaFunctionSanitizer.Apply(cfg.FunctionName)
	}
	if cfg.Description != "" {
		props["Description"] = cfg.Description
	}
	if cfg.Timeout > 0 {
		props["Timeout"] = cfg.Timeout
	}
	if cfg.MemorySize > 0 {
		props["MemorySize"] = cfg.MemorySize
	}
	if len(cfg.Environment) > 0 {
		vars := make(map[string]any, len(cfg.Environment))
		for k, v := range cfg.Environment {
			vars[sanitization.EnvVarKeySanitizer.Apply(k)] = v
		}
		props["Environment"] = map[string]any{"Variables": vars}
	}
	if len(cfg.Subnets) > 0 {
		props["VpcConfig"] = map[string]any{
			"SubnetIds":        cfg.Subnets,
			"SecurityGroupIds": ids(cfg.SecurityGroups),
		}
	}
	return b.Add(LAMBDA_FUNCTION_TYPE, name, props)
}

// LambdaPermission allows principal to invoke function. sourceArn may be nil.
func (b *Builder) LambdaPermission(name string, function construct.ResourceId, principal string, sourceArn any) construct.ResourceId {
	props := construct.Properties{
		"Action":       "lambda:InvokeFunction",
		"FunctionName": Arn(function),
		"Principal":    principal,
	}
	if sourceArn != nil {
		props["SourceArn"] = sourceArn
	}
	if principal == S3ServicePrincipal {
		props["SourceAccount"] = intrinsic.AccountId
	}
	return b.Add(LAMBDA_PERMISSION_TYPE, name, props)
}

// FunctionLogGroup declares the log group a function writes to so that its retention and removal
// follow the stack.
func (b *Builder) FunctionLogGroup(name string, function construct.ResourceId, retentionDays int, deletionPolicy string) construct.ResourceId {
	var groupName any = intrinsic.Join{Values: []any{"/aws/lambda/", function}}
	if fn, err := b.graph.Vertex(function); err == nil {
		if fnName, ok := fn.Properties["FunctionName"].(string); ok {
			groupName = awssanitizer.LogGroupSanitizer.Apply("/aws/lambda/" + fnName)
		}
	}
	props := construct.Properties{
		"LogGroupName":    groupName,
		"RetentionInDays": retentionDays,
	}
	if deletionPolicy != "" {
		props["DeletionPolicy"] = deletionPolicy
	}
	return b.Add(LOG_GROUP_TYPE, name, props)
}

// CustomResource declares a resource whose lifecycle is handled by the function behind serviceToken.
func (b *Builder) CustomResource(name string, serviceToken any, properties map[string]any) construct.ResourceId {
	props := construct.Properties{
		"ServiceToken": serviceToken,
	}
	for k, v := range properties {
		props[k] = v
	}
	return b.Add(CUSTOM_RESOURCE_TYPE, name, props)
}
