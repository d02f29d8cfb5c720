// Package dbinit implements the custom resource that creates the audit schema in the database.
package dbinit

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/grace-platform/grace/pkg/closenicely"
	"github.com/grace-platform/grace/pkg/lambda/cfnresponse"
	"github.com/grace-platform/grace/pkg/logging"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:generate mockgen -source=./dbinit.go --destination=./dbinit_mock_test.go --package=dbinit

//go:embed schema.sql
var Schema string

const (
	DefaultPort   = "5432"
	DefaultDBName = "gracedb"
)

type (
	SecretsAPI interface {
		GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	}

	// Executor runs a script against the database described by creds.
	Executor interface {
		Execute(ctx context.Context, creds Credentials, script string) error
	}

	ResponseSender interface {
		Send(ctx context.Context, responseURL string, resp cfnresponse.Response) error
	}

	// Credentials is the JSON document of the database secret.
	Credentials struct {
		Host     string      `json:"host"`
		Port     json.Number `json:"port"`
		DBName   string      `json:"dbname"`
		Username string      `json:"username"`
		Password string      `json:"password"`
	}

	Handler struct {
		Secrets   SecretsAPI
		DB        Executor
		Sender    ResponseSender
		LogStream string
		// ReadFile reads the schema script. Missing files fall back to the embedded Schema.
		ReadFile func(path string) ([]byte, error)
	}
)

// DSN is the lib/pq connection URL for creds. Connections require TLS.
func (c Credentials) DSN() string {
	port := c.Port.String()
	if port == "" {
		port = DefaultPort
	}
	dbname := c.DBName
	if dbname == "" {
		dbname = DefaultDBName
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, port),
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {"require"}, "connect_timeout": {"10"}}.Encode(),
	}
	return u.String()
}

func ParseCredentials(secret string) (Credentials, error) {
	var c Credentials
	if err := json.Unmarshal([]byte(secret), &c); err != nil {
		return Credentials{}, fmt.Errorf("could not parse database secret: %w", err)
	}
	if c.Host == "" || c.Username == "" {
		return Credentials{}, errors.New("database secret must have host and username")
	}
	return c, nil
}

// PostgresExecutor runs scripts through lib/pq. A script without parameters may hold several statements.
type PostgresExecutor struct{}

func (PostgresExecutor) Execute(ctx context.Context, creds Credentials, script string) (err error) {
	db, err := sql.Open("postgres", creds.DSN())
	if err != nil {
		return err
	}
	defer closenicely.OrJoin(db, &err)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("could not connect to %s: %w", creds.Host, err)
	}
	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("could not execute schema script: %w", err)
	}
	return nil
}

func NewHandler(secrets SecretsAPI, sender ResponseSender) *Handler {
	return &Handler{
		Secrets:   secrets,
		DB:        PostgresExecutor{},
		Sender:    sender,
		LogStream: lambdacontext.LogStreamName,
		ReadFile:  os.ReadFile,
	}
}

// PhysicalResourceId is derived from the invocation's request id.
func PhysicalResourceId(ctx context.Context, event cfn.Event) string {
	id := event.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		id = lc.AwsRequestID
	}
	return "db-init-" + id
}

func (h *Handler) Handle(ctx context.Context, event cfn.Event) error {
	log := logging.GetLogger(ctx).With(zap.String("request_type", string(event.RequestType)))
	physicalId := PhysicalResourceId(ctx, event)
	respond := func(status cfn.StatusType, data map[string]any) error {
		resp := cfnresponse.NewResponse(event, status, cfnresponse.Reason(h.LogStream), physicalId, data)
		return h.Sender.Send(ctx, event.ResponseURL, resp)
	}

	if event.RequestType == cfn.RequestDelete {
		log.Info("Delete request, nothing to do")
		return respond(cfnresponse.Success, nil)
	}
	if err := h.initialize(ctx, event); err != nil {
		log.Error("Could not initialize database", zap.Error(err))
		return respond(cfnresponse.Failed, map[string]any{"Error": err.Error()})
	}
	log.Info("Database initialization completed")
	return respond(cfnresponse.Success, map[string]any{"Message": "Database initialized successfully"})
}

func (h *Handler) initialize(ctx context.Context, event cfn.Event) error {
	secretArn, _ := event.ResourceProperties["SecretArn"].(string)
	if secretArn == "" {
		return errors.New("SecretArn is required")
	}
	secret, err := h.Secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretArn)})
	if err != nil {
		return fmt.Errorf("could not read database secret: %w", err)
	}
	creds, err := ParseCredentials(aws.ToString(secret.SecretString))
	if err != nil {
		return err
	}
	script, err := h.script(ctx, event)
	if err != nil {
		return err
	}
	logging.GetLogger(ctx).Info("Executing schema script",
		zap.String("host", creds.Host),
		zap.String("username", creds.Username),
		logging.Redacted("password", creds.Password),
	)
	return h.DB.Execute(ctx, creds, script)
}

func (h *Handler) script(ctx context.Context, event cfn.Event) (string, error) {
	path, _ := event.ResourceProperties["SqlFilePath"].(string)
	if path == "" {
		return Schema, nil
	}
	data, err := h.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.GetLogger(ctx).Info("Schema file not found, using the embedded schema", logging.FileField(path))
		return Schema, nil
	}
	if err != nil {
		return "", fmt.Errorf("could not read %s: %w", path, err)
	}
	return string(data), nil
}
