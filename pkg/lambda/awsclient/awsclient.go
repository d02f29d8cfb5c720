// Package awsclient loads the AWS configuration shared by the Lambda handlers.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

// Load reads the configuration from the Lambda environment (region and execution role credentials).
func Load(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("could not load AWS configuration: %w", err)
	}
	logging.GetLogger(ctx).Debug("Loaded AWS configuration", zap.String("region", cfg.Region))
	return cfg, nil
}

func S3(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}

func SecretsManager(cfg aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(cfg)
}
