package logging

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLambdaLogger returns a JSON logger writing to stdout, which Lambda forwards to the function's
// CloudWatch log stream. The level defaults to info; LOG_LEVEL uses the same `name=level` form as the CLI.
func NewLambdaLogger(name string) *zap.Logger {
	opts := LogOpts{Encoding: "json"}
	core := zapcore.NewCore(opts.Encoder(), zapcore.Lock(os.Stdout), zap.InfoLevel)
	core = opts.EntryLeveller(core)
	return zap.New(core).Named(name)
}

// WithLambdaContext attaches the invocation's request id and log stream to the logger in ctx.
func WithLambdaContext(ctx context.Context, base *zap.Logger) context.Context {
	log := base
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("aws_request_id", lc.AwsRequestID))
	}
	if lambdacontext.LogStreamName != "" {
		log = log.With(zap.String("log_stream", lambdacontext.LogStreamName))
	}
	return WithLogger(ctx, log)
}
