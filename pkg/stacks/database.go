package stacks

import (
	"encoding/json"
	"strconv"

	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type databaseOutputs struct {
	securityGroup construct.ResourceId
	secret        construct.ResourceId
	instance      construct.ResourceId
}

// SchemaFilePath is where the schema script is looked for before the database initializer falls back
// to its built-in copy.
const SchemaFilePath = "/opt/init-audit-schema.sql"

func (a *App) databaseStack() (*Stack, error) {
	cfg := a.Config.Database
	net := a.network
	s := NewStack(DatabaseStackName, "PostgreSQL database for the GRACE project, with its credentials and schema")
	out := &databaseOutputs{}

	out.securityGroup = s.SecurityGroup("DatabaseSecurityGroup", net.vpc, "Security group for PostgreSQL database")

	template, err := json.Marshal(map[string]string{"username": cfg.Username})
	if err != nil {
		return nil, err
	}
	out.secret = s.Secret("DatabaseCredentials", aws.SecretConfig{
		SecretName:           cfg.SecretName,
		SecretStringTemplate: string(template),
		GenerateKey:          "password",
		ExcludePunctuation:   true,
		IncludeSpace:         false,
	})

	subnetGroup := s.RdsSubnetGroup(
		"GraceDatabaseSubnetGroup",
		"Subnet group for GraceDatabase database",
		idList(net.isolatedSubnets),
	)
	out.instance = s.RdsInstance("GraceDatabase", aws.RdsInstanceConfig{
		Engine:              "postgres",
		EngineVersion:       cfg.EngineVersion,
		InstanceClass:       cfg.InstanceClass,
		DatabaseName:        cfg.DatabaseName,
		AllocatedStorage:    cfg.AllocatedStorage,
		StorageType:         "gp2",
		MultiAz:             true,
		BackupRetentionDays: cfg.BackupRetentionDays,
		DeletionProtection:  a.Config.Production,
		Port:                cfg.Port,
		Secret:              out.secret,
		SubnetGroup:         subnetGroup,
		SecurityGroups:      []construct.ResourceId{out.securityGroup},
	})
	attachment := s.SecretTargetAttachment("DatabaseCredentialsAttachment", out.secret, out.instance)

	initSg := s.SecurityGroup("DbInitSecurityGroup", net.vpc, "Security group for the DbInit function")
	initIngress := s.SecurityGroupIngress(
		"DatabaseIngressFromDbInit",
		construct.PropertyRef{Resource: out.securityGroup, Property: "GroupId"},
		construct.PropertyRef{Resource: initSg, Property: "GroupId"},
		cfg.Port,
		"Allow DbInit to connect to the database",
	)

	initFn, err := a.addFunction(s, function{
		Name:             "DbInitFunction",
		Handler:          DbInitHandler,
		LogRetentionDays: 7,
		FunctionConfig: aws.FunctionConfig{
			Description:    "Initializes the GRACE audit schema",
			Timeout:        300,
			Subnets:        idList(net.privateSubnets),
			SecurityGroups: []construct.ResourceId{initSg},
		},
		Statements: []aws.Statement{
			aws.Allow([]any{out.secret}, "secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"),
		},
	})
	if err != nil {
		return nil, err
	}
	dbInit := s.CustomResource("DbInit", aws.Arn(initFn), map[string]any{
		"SecretArn":   out.secret,
		"SqlFilePath": SchemaFilePath,
		// A new value on every deploy makes the provisioning engine run the initializer again.
		"Version": strconv.FormatInt(a.Now().UnixMilli(), 10),
	})
	s.DependsOn(dbInit, out.instance, attachment, initIngress)

	s.AddOutput("DatabaseEndpoint", construct.PropertyRef{Resource: out.instance, Property: "Endpoint.Address"}, "Endpoint of the PostgreSQL database")
	s.AddOutput("DatabaseSecretArn", out.secret, "ARN of the database credentials secret")
	a.database = out
	return s, nil
}
