// Package tagupdater implements the custom resource that tags the data bucket with the environment
// it belongs to and the removal policy that applies to it.
package tagupdater

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/grace-platform/grace/pkg/lambda/cfnresponse"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

const (
	Project   = "GRACE"
	ManagedBy = "CDK"

	RemovalPolicyRetain  = "RETAIN"
	RemovalPolicyDestroy = "DESTROY"

	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

type (
	TaggingAPI interface {
		PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	}

	ResponseSender interface {
		Send(ctx context.Context, responseURL string, resp cfnresponse.Response) error
	}

	Handler struct {
		S3     TaggingAPI
		Sender ResponseSender
		// LogStream is the invocation's CloudWatch log stream. It is the resource's physical id and is
		// named in every response reason.
		LogStream string
	}
)

// Settings derives the removal policy and environment from the IsProduction property. Only the exact
// string "true" selects production.
func Settings(isProduction any) (removalPolicy, environment string) {
	if s, ok := isProduction.(string); ok && s == "true" {
		return RemovalPolicyRetain, EnvironmentProduction
	}
	return RemovalPolicyDestroy, EnvironmentDevelopment
}

func TagSet(environment, removalPolicy string) []s3types.Tag {
	return []s3types.Tag{
		{Key: aws.String("Project"), Value: aws.String(Project)},
		{Key: aws.String("Environment"), Value: aws.String(environment)},
		{Key: aws.String("RemovalPolicy"), Value: aws.String(removalPolicy)},
		{Key: aws.String("ManagedBy"), Value: aws.String(ManagedBy)},
	}
}

// Handle processes one request. Tagging failures are reported to CloudFormation as FAILED; only a
// response that cannot be delivered is returned as an error.
func (h *Handler) Handle(ctx context.Context, event cfn.Event) error {
	log := logging.GetLogger(ctx).With(
		zap.String("request_type", string(event.RequestType)),
		zap.String("logical_resource_id", event.LogicalResourceID),
	)
	log.Info("Received event", zap.Any("resource_properties", event.ResourceProperties))

	if event.RequestType == cfn.RequestDelete {
		return h.respond(ctx, event, cfnresponse.Success, nil)
	}

	bucket, _ := event.ResourceProperties["BucketName"].(string)
	removalPolicy, environment := Settings(event.ResourceProperties["IsProduction"])

	_, err := h.S3.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(bucket),
		Tagging: &s3types.Tagging{TagSet: TagSet(environment, removalPolicy)},
	})
	if err != nil {
		log.Error("Could not tag bucket", zap.String("bucket", bucket), zap.Error(err))
		return h.respond(ctx, event, cfnresponse.Failed, nil)
	}
	log.Info("Tagged bucket",
		zap.String("bucket", bucket),
		zap.String("environment", environment),
		zap.String("removal_policy", removalPolicy),
	)
	return h.respond(ctx, event, cfnresponse.Success, map[string]any{
		"BucketName":    bucket,
		"RemovalPolicy": removalPolicy,
		"Environment":   environment,
	})
}

func (h *Handler) respond(ctx context.Context, event cfn.Event, status cfn.StatusType, data map[string]any) error {
	resp := cfnresponse.NewResponse(event, status, cfnresponse.Reason(h.LogStream), h.LogStream, data)
	return h.Sender.Send(ctx, event.ResponseURL, resp)
}
