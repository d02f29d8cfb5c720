package aws

import (
	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	awssanitizer "github.com/grace-platform/grace/pkg/sanitization/aws"
)

type (
	S3BucketConfig struct {
		// BucketName is optional; the provisioning engine generates one when nil. Plain strings are
		// sanitized into a valid bucket name.
		BucketName        any
		Versioned         bool
		Encrypted         bool
		BlockPublicAccess bool
		// EventBridge sends the bucket's object events to the account's default event bus.
		EventBridge    bool
		ObjectLock     *ObjectLockConfig
		DeletionPolicy string
	}

	ObjectLockConfig struct {
		Mode string
		Days int
	}

	// LambdaNotification invokes Function for every Event (for example `s3:ObjectCreated:*`).
	LambdaNotification struct {
		Event    string
		Function construct.ResourceId
	}
)

const ObjectLockGovernance = "GOVERNANCE"

func (b *Builder) S3Bucket(name string, cfg S3BucketConfig) construct.ResourceId {
	props := construct.Properties{}
	switch name := cfg.BucketName.(type) {
	case nil:
	case string:
		props["BucketName"] = awssanitizer.S3BucketSanitizer.Apply(name)
	default:
		props["BucketName"] = name
	}
	if cfg.Versioned || cfg.ObjectLock != nil {
		props["VersioningConfiguration"] = map[string]any{"Status": "Enabled"}
	}
	if cfg.Encrypted {
		props["BucketEncryption"] = map[string]any{
			"ServerSideEncryptionConfiguration": []any{
				map[string]any{
					"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "AES256"},
				},
			},
		}
	}
	if cfg.BlockPublicAccess {
		props["PublicAccessBlockConfiguration"] = map[string]any{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		}
	}
	if cfg.EventBridge {
		props["NotificationConfiguration"] = map[string]any{
			"EventBridgeConfiguration": map[string]any{"EventBridgeEnabled": true},
		}
	}
	if cfg.ObjectLock != nil {
		props["ObjectLockEnabled"] = true
		props["ObjectLockConfiguration"] = map[string]any{
			"ObjectLockEnabled": "Enabled",
			"Rule": map[string]any{
				"DefaultRetention": map[string]any{
					"Mode": cfg.ObjectLock.Mode,
					"Days": cfg.ObjectLock.Days,
				},
			},
		}
	}
	if cfg.DeletionPolicy != "" {
		props["DeletionPolicy"] = cfg.DeletionPolicy
	}
	return b.Add(S3_BUCKET_TYPE, name, props)
}

// AddBucketNotification configures bucket to invoke a function. The matching permission must exist
// before the bucket configuration is applied, so the bucket is made to depend on it. The permission
// must therefore name the bucket with [BucketArnForName] rather than refer to it.
func (b *Builder) AddBucketNotification(bucket construct.ResourceId, n LambdaNotification, permission construct.ResourceId) {
	b.AppendProperty(bucket, "NotificationConfiguration.LambdaConfigurations", map[string]any{
		"Event":    n.Event,
		"Function": Arn(n.Function),
	})
	b.DependsOn(bucket, permission)
}

// ImportedBucket is a bucket managed outside of the application. Values that use it refer to the
// bucket by name.
type ImportedBucket string

func (n ImportedBucket) Name() any {
	return string(n)
}

func (n ImportedBucket) Arn() any {
	return BucketArnForName(string(n))
}

// BucketArnForName builds a bucket ARN from its name without referring to the bucket resource.
func BucketArnForName(name any) intrinsic.Join {
	return intrinsic.Arn("s3", false, name)
}

// BucketArn returns the ARN of a declared bucket, optionally followed by an object path suffix such
// as `/*`.
func BucketArn(bucket construct.ResourceId, suffix string) any {
	if suffix == "" {
		return Arn(bucket)
	}
	return intrinsic.Join{Values: []any{Arn(bucket), suffix}}
}

func (b *Builder) S3BucketPolicy(name string, bucket any, statements ...Statement) construct.ResourceId {
	return b.Add(S3_BUCKET_POLICY_TYPE, name, construct.Properties{
		"Bucket":         bucket,
		"PolicyDocument": PolicyDocument(statements...),
	})
}
