package stacks

import (
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type computeOutputs struct {
	provenanceLogger construct.ResourceId
}

// ProvenanceLoggerExport is the fixed export name of the provenance logger's ARN.
const ProvenanceLoggerExport = "ProvenanceLoggerArn"

func (a *App) computeStack() (*Stack, error) {
	net, db := a.network, a.database
	s := NewStack(ComputeStackName, "Functions for the GRACE project that work with the audit database")
	out := &computeOutputs{}

	sg := s.SecurityGroup("ProvenanceLoggerSecurityGroup", net.vpc, "Security group for the ProvenanceLogger function")
	// The ingress rule lives with the function so the database stack does not depend on this one.
	s.SecurityGroupIngress(
		"DatabaseIngressFromProvenanceLogger",
		construct.PropertyRef{Resource: db.securityGroup, Property: "GroupId"},
		construct.PropertyRef{Resource: sg, Property: "GroupId"},
		a.Config.Database.Port,
		"Allow ProvenanceLogger to connect to the database",
	)

	fn, err := a.addFunction(s, function{
		Name:    "ProvenanceLoggerFunction",
		Handler: ProvenanceLoggerHandler,
		FunctionConfig: aws.FunctionConfig{
			FunctionName:   "ProvenanceLogger",
			Description:    "Records provenance for audit workflow events",
			Timeout:        30,
			MemorySize:     256,
			Subnets:        idList(net.privateSubnets),
			SecurityGroups: []construct.ResourceId{sg},
			Environment: map[string]any{
				"DB_SECRET_ARN": db.secret,
				"DB_ENDPOINT":   construct.PropertyRef{Resource: db.instance, Property: "Endpoint.Address"},
			},
		},
		Statements: []aws.Statement{
			aws.Allow([]any{db.secret}, "secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"),
		},
	})
	if err != nil {
		return nil, err
	}
	out.provenanceLogger = fn

	s.AddExport("ProvenanceLoggerArn", aws.Arn(fn), "ARN of the ProvenanceLogger Lambda function", ProvenanceLoggerExport)
	a.compute = out
	return s, nil
}
