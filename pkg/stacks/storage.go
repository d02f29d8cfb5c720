package stacks

import (
	"github.com/grace-platform/grace/pkg/cloudformation/intrinsic"
	"github.com/grace-platform/grace/pkg/construct"
	"github.com/grace-platform/grace/pkg/provider/aws"
)

type storageOutputs struct {
	// dataBucketName is the data bucket's name: a plain string when the bucket is imported, otherwise
	// a reference to the declared bucket.
	dataBucketName any
	dataBucketArn  any
	uploadsBucket  construct.ResourceId
	ledgerBucket   construct.ResourceId
}

// TimestampFormat matches JavaScript's Date.toISOString, which the tag updater's timestamp property
// has always used.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

func (a *App) storageStack() (*Stack, error) {
	cfg := a.Config.Storage
	s := NewStack(StorageStackName, "S3 storage for the GRACE project: data, uploads, and the immutable audit ledger")
	out := &storageOutputs{}

	if cfg.ImportDataBucket {
		imported := aws.ImportedBucket(cfg.DataBucketName)
		out.dataBucketName = imported.Name()
		out.dataBucketArn = imported.Arn()
	} else {
		bucket := s.S3Bucket("GraceDataBucket", aws.S3BucketConfig{
			BucketName:        cfg.DataBucketName,
			Versioned:         true,
			Encrypted:         true,
			BlockPublicAccess: true,
			EventBridge:       true,
			DeletionPolicy:    a.deletionPolicy(),
		})
		out.dataBucketName = bucket
		out.dataBucketArn = aws.BucketArn(bucket, "")
	}

	tagFn, err := a.addFunction(s, function{
		Name:    "BucketTagUpdaterFunction",
		Handler: TagUpdaterHandler,
		FunctionConfig: aws.FunctionConfig{
			Description: "Tags the data bucket with its environment and removal policy",
			Timeout:     30,
		},
		Statements: []aws.Statement{
			aws.Allow([]any{out.dataBucketArn}, "s3:GetBucketTagging", "s3:PutBucketTagging"),
		},
	})
	if err != nil {
		return nil, err
	}
	s.CustomResource("BucketTagUpdater", aws.Arn(tagFn), map[string]any{
		"BucketName":      out.dataBucketName,
		"IsProduction":    a.Config.IsProductionFlag(),
		"UpdateTimestamp": a.Now().UTC().Format(TimestampFormat),
	})

	// Buckets that notify a function are named up front so the function's permission can name them
	// without depending on the bucket.
	uploadsName := intrinsic.Join{Delimiter: "-", Values: []any{a.Config.AppName, "uploads", intrinsic.AccountId, intrinsic.Region}}
	out.uploadsBucket = s.S3Bucket("GraceUploadsBucket", aws.S3BucketConfig{
		BucketName:        uploadsName,
		Versioned:         true,
		Encrypted:         true,
		BlockPublicAccess: true,
		DeletionPolicy:    a.deletionPolicy(),
	})
	out.ledgerBucket = s.S3Bucket("GraceLedgerBucket", aws.S3BucketConfig{
		Versioned:         true,
		Encrypted:         true,
		BlockPublicAccess: true,
		ObjectLock: &aws.ObjectLockConfig{
			Mode: aws.ObjectLockGovernance,
			Days: cfg.LedgerRetentionDays,
		},
		DeletionPolicy: aws.DeletionPolicyRetain,
	})

	auditFn, err := a.addFunction(s, function{
		Name:    "AuditHandlerFunction",
		Handler: AuditHandler,
		FunctionConfig: aws.FunctionConfig{
			Description: "Appends a hash-chained audit record to the ledger for every upload",
			Timeout:     30,
			Environment: map[string]any{
				"LEDGER_BUCKET_NAME": out.ledgerBucket,
			},
		},
		Statements: []aws.Statement{
			aws.Allow(
				[]any{aws.BucketArnForName(uploadsName), intrinsic.Join{Values: []any{aws.BucketArnForName(uploadsName), "/*"}}},
				"s3:GetObject*", "s3:GetBucket*", "s3:List*",
			),
			aws.Allow(
				[]any{aws.BucketArn(out.ledgerBucket, ""), aws.BucketArn(out.ledgerBucket, "/*")},
				"s3:PutObject", "s3:PutObjectRetention", "s3:PutObjectLegalHold", "s3:GetObject*", "s3:GetBucket*", "s3:List*",
			),
		},
	})
	if err != nil {
		return nil, err
	}
	permission := s.LambdaPermission("AuditHandlerUploadsPermission", auditFn, aws.S3ServicePrincipal, aws.BucketArnForName(uploadsName))
	s.AddBucketNotification(out.uploadsBucket, aws.LambdaNotification{
		Event:    "s3:ObjectCreated:*",
		Function: auditFn,
	}, permission)

	s.AddOutput("DataBucketName", out.dataBucketName, "Name of the S3 bucket for dataset storage")
	s.AddOutput("RemovalPolicy", a.Config.RemovalPolicy(), "Removal policy for the S3 bucket")
	s.AddOutput("Environment", a.Config.Environment(), "Environment configuration")
	s.AddOutput("UploadsBucketName", out.uploadsBucket, "The name of the S3 bucket for data uploads")
	s.AddOutput("LedgerBucketName", out.ledgerBucket, "The name of the S3 bucket for the immutable ledger")
	a.storage = out
	return s, nil
}
