// Package chainverifier serves `POST /audits/{datasetId}/verify`: it re-verifies the audit chain of
// a dataset from the records stored in the ledger bucket.
package chainverifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/grace-platform/grace/pkg/ledger"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

type (
	API interface {
		s3.ListObjectsV2APIClient
		GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	}

	Handler struct {
		S3           API
		LedgerBucket string
	}

	Result struct {
		Verified    bool                    `json:"verified"`
		DatasetId   string                  `json:"dataset_id,omitempty"`
		RecordCount int                     `json:"record_count,omitempty"`
		Records     []ledger.VerifiedRecord `json:"records,omitempty"`
		Error       string                  `json:"error,omitempty"`
	}
)

var responseHeaders = map[string]string{
	"Content-Type":                "application/json",
	"Access-Control-Allow-Origin": "*",
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := logging.GetLogger(ctx)
	dataset := req.PathParameters["datasetId"]
	if dataset == "" {
		return respond(http.StatusInternalServerError, failure(errors.New("missing path parameter datasetId"))), nil
	}
	log = log.With(zap.String("dataset_id", dataset), zap.String("requested_by", Requester(req)))

	result := h.Verify(ctx, dataset)
	if result.Verified {
		log.Info("Chain verified", zap.Int("record_count", result.RecordCount))
	} else {
		log.Warn("Chain not verified", zap.String("reason", result.Error))
	}
	return respond(http.StatusOK, result), nil
}

func respond(status int, result Result) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(result)
	headers := make(map[string]string, len(responseHeaders))
	for k, v := range responseHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(body)}
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

// Verify reads every record of dataset in key order and checks the chain.
func (h *Handler) Verify(ctx context.Context, dataset string) Result {
	keys, err := h.recordKeys(ctx, dataset)
	if err != nil {
		return failure(err)
	}
	if len(keys) == 0 {
		return Result{Error: fmt.Sprintf("No audit records found for dataset %s", dataset)}
	}

	entries := make([]ledger.Entry, 0, len(keys))
	for _, key := range keys {
		rec, err := h.read(ctx, key)
		if err != nil {
			return failure(err)
		}
		entries = append(entries, ledger.Entry{Key: key, Record: rec})
	}
	verified, err := ledger.Verify(entries)
	if err != nil {
		return failure(err)
	}
	return Result{Verified: true, DatasetId: dataset, RecordCount: len(verified), Records: verified}
}

func (h *Handler) recordKeys(ctx context.Context, dataset string) ([]string, error) {
	var keys []string
	pages := s3.NewListObjectsV2Paginator(h.S3, &s3.ListObjectsV2Input{
		Bucket: aws.String(h.LedgerBucket),
		Prefix: aws.String(ledger.DatasetPrefix(dataset)),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list records: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (h *Handler) read(ctx context.Context, key string) (ledger.Record, error) {
	obj, err := h.S3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(h.LedgerBucket), Key: aws.String(key)})
	if err != nil {
		return ledger.Record{}, fmt.Errorf("could not read %s: %w", key, err)
	}
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("could not read %s: %w", key, err)
	}
	rec, err := ledger.ParseRecord(data)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%s: %w", key, err)
	}
	return rec, nil
}

// Requester names the caller for the audit log. API Gateway has already validated the token, so the
// claims are taken from the authorizer context or, failing that, read from the unverified token.
func Requester(req events.APIGatewayProxyRequest) string {
	if claims, ok := req.RequestContext.Authorizer["claims"].(map[string]any); ok {
		if name := claimName(claims); name != "" {
			return name
		}
	}
	token := req.Headers["Authorization"]
	if token == "" {
		token = req.Headers["authorization"]
	}
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	return claimName(claims)
}

func claimName(claims map[string]any) string {
	for _, c := range []string{"email", "cognito:username", "sub"} {
		if v, ok := claims[c].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
