// Command audithandler appends a ledger record for every object uploaded to the uploads bucket.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/grace-platform/grace/pkg/lambda/audithandler"
	"github.com/grace-platform/grace/pkg/lambda/awsclient"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	log := logging.NewLambdaLogger("audithandler")
	defer log.Sync() //nolint:errcheck

	bucket, err := awsclient.LedgerBucketEnv.Required()
	if err != nil {
		log.Fatal("Could not start", zap.Error(err))
	}
	cfg, err := awsclient.Load(logging.WithLogger(context.Background(), log))
	if err != nil {
		log.Fatal("Could not start", zap.Error(err))
	}
	h := audithandler.NewHandler(awsclient.S3(cfg), bucket)
	lambda.Start(func(ctx context.Context, event events.S3Event) (audithandler.Response, error) {
		return h.Handle(logging.WithLambdaContext(ctx, log), event)
	})
}
