// Command tagupdater is the custom resource that tags the data bucket with its environment settings.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/grace-platform/grace/pkg/lambda/awsclient"
	"github.com/grace-platform/grace/pkg/lambda/cfnresponse"
	"github.com/grace-platform/grace/pkg/lambda/tagupdater"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	log := logging.NewLambdaLogger("tagupdater")
	defer log.Sync() //nolint:errcheck

	var client tagupdater.TaggingAPI
	cfg, err := awsclient.Load(logging.WithLogger(context.Background(), log))
	if err != nil {
		// Requests are still answered, as FAILED.
		log.Error("Could not load AWS configuration", zap.Error(err))
		client = awsclient.Unavailable{Err: err}
	} else {
		client = awsclient.S3(cfg)
	}
	h := &tagupdater.Handler{
		S3:        client,
		Sender:    cfnresponse.NewSender(cfnresponse.DefaultTimeout),
		LogStream: lambdacontext.LogStreamName,
	}
	lambda.Start(func(ctx context.Context, event cfn.Event) error {
		return h.Handle(logging.WithLambdaContext(ctx, log), event)
	})
}
