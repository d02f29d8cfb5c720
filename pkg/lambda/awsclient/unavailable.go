package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Unavailable stands in for clients whose configuration could not be loaded. Every call fails with
// Err, so custom resources still answer CloudFormation with FAILED instead of leaving it to time out.
type Unavailable struct {
	Err error
}

func (u Unavailable) fail(operation string) error {
	return fmt.Errorf("%s: client unavailable: %w", operation, u.Err)
}

func (u Unavailable) PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error) {
	return nil, u.fail("PutBucketTagging")
}

func (u Unavailable) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return nil, u.fail("GetSecretValue")
}
