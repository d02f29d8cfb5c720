// Command chainverifier serves `POST /audits/{datasetId}/verify`.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/grace-platform/grace/pkg/lambda/awsclient"
	"github.com/grace-platform/grace/pkg/lambda/chainverifier"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	log := logging.NewLambdaLogger("chainverifier")
	defer log.Sync() //nolint:errcheck

	bucket, err := awsclient.LedgerBucketEnv.Required()
	if err != nil {
		log.Fatal("Could not start", zap.Error(err))
	}
	cfg, err := awsclient.Load(logging.WithLogger(context.Background(), log))
	if err != nil {
		log.Fatal("Could not start", zap.Error(err))
	}
	h := &chainverifier.Handler{S3: awsclient.S3(cfg), LedgerBucket: bucket}
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return h.Handle(logging.WithLambdaContext(ctx, log), req)
	})
}
