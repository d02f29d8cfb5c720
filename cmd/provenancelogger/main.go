// Command provenancelogger is the workflow step that hashes and logs a provenance event.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/grace-platform/grace/pkg/lambda/awsclient"
	"github.com/grace-platform/grace/pkg/lambda/provenance"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	log := logging.NewLambdaLogger("provenancelogger").With(
		zap.String("db_endpoint", awsclient.DBEndpointEnv.GetOr("")),
	)
	defer log.Sync() //nolint:errcheck

	h := provenance.NewHandler()
	lambda.Start(func(ctx context.Context, event json.RawMessage) (provenance.Response, error) {
		return h.Handle(logging.WithLambdaContext(ctx, log), event)
	})
}
