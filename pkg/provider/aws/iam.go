package aws

import (
	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	awssanitizer "github.com/grace-platform/grace/pkg/sanitization/aws"
)

type (
	Statement struct {
		Effect    string
		Action    []string
		Resource  []any
		Principal map[string]any
		Condition map[string]any
	}

	RoleConfig struct {
		RoleName string
		// Service is the principal allowed to assume the role, for example `lambda.amazonaws.com`.
		Service           string
		Description       string
		ManagedPolicyArns []any
	}
)

const (
	LambdaServicePrincipal       = "lambda.amazonaws.com"
	StatesServicePrincipal       = "states.amazonaws.com"
	EventsServicePrincipal       = "events.amazonaws.com"
	S3ServicePrincipal           = "s3.amazonaws.com"
	ApiGatewayServicePrincipal   = "apigateway.amazonaws.com"
	LambdaBasicExecutionPolicy   = "service-role/AWSLambdaBasicExecutionRole"
	LambdaVpcAccessExecutionRole = "service-role/AWSLambdaVPCAccessExecutionRole"
)

// Allow is a statement allowing actions on resources.
func Allow(resources []any, actions ...string) Statement {
	return Statement{Effect: "Allow", Action: actions, Resource: resources}
}

func (s Statement) document() map[string]any {
	doc := map[string]any{
		"Effect": s.Effect,
	}
	if len(s.Action) == 1 {
		doc["Action"] = s.Action[0]
	} else {
		actions := make([]any, len(s.Action))
		for i, a := range s.Action {
			actions[i] = a
		}
		doc["Action"] = actions
	}
	if len(s.Resource) == 1 {
		doc["Resource"] = s.Resource[0]
	} else if len(s.Resource) > 1 {
		doc["Resource"] = s.Resource
	}
	if s.Principal != nil {
		doc["Principal"] = s.Principal
	}
	if s.Condition != nil {
		doc["Condition"] = s.Condition
	}
	return doc
}

func PolicyDocument(statements ...Statement) map[string]any {
	list := make([]any, len(statements))
	for i, s := range statements {
		list[i] = s.document()
	}
	return map[string]any{
		"Version":   "2012-10-17",
		"Statement": list,
	}
}

// ManagedPolicy returns the ARN of an AWS managed policy, for example
// `service-role/AWSLambdaBasicExecutionRole`.
func ManagedPolicy(path string) intrinsic.Join {
	return intrinsic.Join{Values: []any{"arn:", intrinsic.Partition, ":iam::aws:policy/" + path}}
}

func (b *Builder) IamRole(name string, cfg RoleConfig) construct.ResourceId {
	props := construct.Properties{
		"AssumeRolePolicyDocument": PolicyDocument(Statement{
			Effect:    "Allow",
			Action:    []string{"sts:AssumeRole"},
			Principal: map[string]any{"Service": cfg.Service},
		}),
	}
	if cfg.RoleName != "" {
		props["RoleName"] = awssanitizer.IamRoleSanitizer.Apply(cfg.RoleName)
	}
	if cfg.Description != "" {
		props["Description"] = cfg.Description
	}
	if len(cfg.ManagedPolicyArns) > 0 {
		props["ManagedPolicyArns"] = cfg.ManagedPolicyArns
	}
	return b.Add(IAM_ROLE_TYPE, name, props)
}

// LambdaExecutionRole declares the role a function runs as. Functions attached to a VPC also get
// the permissions to manage their network interfaces.
func (b *Builder) LambdaExecutionRole(name string, inVpc bool) construct.ResourceId {
	policies := []any{ManagedPolicy(LambdaBasicExecutionPolicy)}
	if inVpc {
		policies = append(policies, ManagedPolicy(LambdaVpcAccessExecutionRole))
	}
	return b.IamRole(name, RoleConfig{
		Service:           LambdaServicePrincipal,
		ManagedPolicyArns: policies,
	})
}

// Grant attaches an inline policy with the given statements to the roles.
func (b *Builder) Grant(name string, roles []construct.ResourceId, statements ...Statement) construct.ResourceId {
	return b.Add(IAM_POLICY_TYPE, name, construct.Properties{
		"PolicyName":     name,
		"PolicyDocument": PolicyDocument(statements...),
		"Roles":          ids(roles),
	})
}
