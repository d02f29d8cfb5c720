// Command dbinit is the custom resource that creates the audit schema.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/grace-platform/grace/pkg/lambda/awsclient"
	"github.com/grace-platform/grace/pkg/lambda/cfnresponse"
	"github.com/grace-platform/grace/pkg/lambda/dbinit"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	log := logging.NewLambdaLogger("dbinit")
	defer log.Sync() //nolint:errcheck

	var secrets dbinit.SecretsAPI
	cfg, err := awsclient.Load(logging.WithLogger(context.Background(), log))
	if err != nil {
		// Requests are still answered, as FAILED.
		log.Error("Could not load AWS configuration", zap.Error(err))
		secrets = awsclient.Unavailable{Err: err}
	} else {
		secrets = awsclient.SecretsManager(cfg)
	}
	h := dbinit.NewHandler(secrets, cfnresponse.NewSender(cfnresponse.DefaultTimeout))
	lambda.Start(func(ctx context.Context, event cfn.Event) error {
		return h.Handle(logging.WithLambdaContext(ctx, log), event)
	})
}
