package aws

import (
	"strconv"

	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	awssanitizer "github.com/grace-platform/grace/pkg/sanitization/aws"
)

type (
	SecretConfig struct {
		SecretName  string
		Description string
		// SecretStringTemplate is the JSON document the generated value is inserted into under GenerateKey.
		SecretStringTemplate string
		GenerateKey          string
		ExcludePunctuation   bool
		IncludeSpace         bool
		PasswordLength       int
	}

	RdsInstanceConfig struct {
		Engine              string
		EngineVersion       string
		InstanceClass       string
		DatabaseName        string
		AllocatedStorage    int
		StorageType         string
		MultiAz             bool
		BackupRetentionDays int
		DeletionProtection  bool
		Port                int
		// Secret supplies the master credentials through dynamic references.
		Secret         construct.ResourceId
		SubnetGroup    construct.ResourceId
		SecurityGroups []construct.ResourceId
		DeletionPolicy string
	}
)

func (b *Builder) Secret(name string, cfg SecretConfig) construct.ResourceId {
	gen := map[string]any{
		"ExcludePunctuation": cfg.ExcludePunctuation,
		"IncludeSpace":       cfg.IncludeSpace,
	}
	if cfg.SecretStringTemplate != "" {
		gen["SecretStringTemplate"] = cfg.SecretStringTemplate
		gen["GenerateStringKey"] = cfg.GenerateKey
	}
	if cfg.PasswordLength > 0 {
		gen["PasswordLength"] = cfg.PasswordLength
	}
	props := construct.Properties{
		"GenerateSecretString": gen,
	}
	if cfg.SecretName != "" {
		props["Name"] = awssanitizer.SecretSanitizer.Apply(cfg.SecretName)
	}
	if cfg.Description != "" {
		props["Description"] = cfg.Description
	}
	return b.Add(SECRET_TYPE, name, props)
}

// SecretTargetAttachment adds the instance's connection details (host, port, engine, dbname) to the
// secret once the instance exists.
func (b *Builder) SecretTargetAttachment(name string, secret, instance construct.ResourceId) construct.ResourceId {
	return b.Add(SECRET_TARGET_ATTACHMENT_TYPE, name, construct.Properties{
		"SecretId":   secret,
		"TargetId":   instance,
		"TargetType": "AWS::RDS::DBInstance",
	})
}

func (b *Builder) RdsSubnetGroup(name string, description string, subnets []any) construct.ResourceId {
	return b.Add(RDS_SUBNET_GROUP_TYPE, name, construct.Properties{
		"DBSubnetGroupDescription": description,
		"SubnetIds":                subnets,
	})
}

func (b *Builder) RdsInstance(name string, cfg RdsInstanceConfig) construct.ResourceId {
	props := construct.Properties{
		"Engine":                cfg.Engine,
		"EngineVersion":         cfg.EngineVersion,
		"DBInstanceClass":       cfg.InstanceClass,
		"AllocatedStorage":      itoa(cfg.AllocatedStorage),
		"StorageType":           cfg.StorageType,
		"MultiAZ":               cfg.MultiAz,
		"BackupRetentionPeriod": cfg.BackupRetentionDays,
		"DeletionProtection":    cfg.DeletionProtection,
		"PubliclyAccessible":    false,
		"CopyTagsToSnapshot":    true,
		"StorageEncrypted":      true,
		"DBSubnetGroupName":     cfg.SubnetGroup,
		"VPCSecurityGroups":     ids(cfg.SecurityGroups),
	}
	if cfg.DatabaseName != "" {
		props["DBName"] = awssanitizer.RdsDBNameSanitizer.Apply(cfg.DatabaseName)
	}
	if cfg.Port != 0 {
		props["Port"] = itoa(cfg.Port)
	}
	if !cfg.Secret.IsZero() {
		props["MasterUsername"] = SecretValue(cfg.Secret, "username")
		props["MasterUserPassword"] = SecretValue(cfg.Secret, "password")
	}
	if cfg.DeletionPolicy != "" {
		props["DeletionPolicy"] = cfg.DeletionPolicy
	}
	return b.Add(RDS_INSTANCE_TYPE, name, props)
}

// SecretValue is a dynamic reference to one JSON key of a secret's value, resolved by the
// provisioning engine at deploy time so the value never appears in the template.
func SecretValue(secret construct.ResourceId, key string) intrinsic.Join {
	return intrinsic.Join{Values: []any{
		"{{resolve:secretsmanager:", secret, ":SecretString:" + key + "::}}",
	}}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
