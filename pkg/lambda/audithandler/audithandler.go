// Package audithandler appends a ledger record for every object uploaded to the uploads bucket.
package audithandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/grace-platform/grace/pkg/ledger"
	"github.com/grace-platform/grace/pkg/logging"
	"go.uber.org/zap"
)

const (
	// RetentionDays is how long a record is locked in GOVERNANCE mode.
	RetentionDays = 365

	// EventTimeFormat is the format S3 uses for `eventTime`.
	EventTimeFormat = "2006-01-02T15:04:05.000Z"

	MetadataHash         = "hash"
	MetadataPreviousHash = "previous_hash"
)

type (
	API interface {
		s3.HeadObjectAPIClient
		s3.ListObjectsV2APIClient
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	Handler struct {
		S3           API
		LedgerBucket string

		Now   func() time.Time
		NewID func() string
	}

	// Response is returned to the invoker (S3 ignores it).
	Response struct {
		StatusCode int    `json:"statusCode"`
		Body       string `json:"body"`
	}
)

func NewHandler(api API, ledgerBucket string) *Handler {
	return &Handler{
		S3:           api,
		LedgerBucket: ledgerBucket,
		Now:          time.Now,
		NewID:        uuid.NewString,
	}
}

func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	log := logging.GetLogger(ctx)
	for _, record := range event.Records {
		key, err := h.audit(ctx, record)
		if err != nil {
			log.Error("Could not create audit record", zap.Error(err))
			return response(500, map[string]any{
				"message": "Error creating audit records",
				"error":   err.Error(),
			}), nil
		}
		log.Info("Audit record created", zap.String("key", key))
	}
	return response(200, map[string]any{"message": "Audit records created successfully"}), nil
}

func response(status int, body map[string]any) Response {
	data, _ := json.Marshal(body)
	return Response{StatusCode: status, Body: string(data)}
}

func objectKey(record events.S3EventRecord) string {
	if record.S3.Object.URLDecodedKey != "" {
		return record.S3.Object.URLDecodedKey
	}
	return record.S3.Object.Key
}

// AuditData describes an uploaded object. These fields are hashed, so their names and formats are fixed.
func AuditData(record events.S3EventRecord, head *s3.HeadObjectOutput) map[string]any {
	return map[string]any{
		"source_bucket": record.S3.Bucket.Name,
		"source_key":    objectKey(record),
		"event_time":    record.EventTime.UTC().Format(EventTimeFormat),
		"object_size":   aws.ToInt64(head.ContentLength),
		"object_etag":   strings.Trim(aws.ToString(head.ETag), `"`),
		"event_name":    record.EventName,
		"user_identity": record.PrincipalID.PrincipalID,
	}
}

func (h *Handler) audit(ctx context.Context, record events.S3EventRecord) (string, error) {
	bucket, key := record.S3.Bucket.Name, objectKey(record)
	head, err := h.S3.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", fmt.Errorf("could not read s3://%s/%s: %w", bucket, key, err)
	}

	dataset := ledger.DatasetOf(key)
	latestKey, previous, err := h.latest(ctx, dataset)
	if err != nil {
		return "", err
	}

	// Keys must sort after the record they chain onto.
	now := ledger.NextTimestamp(h.Now().UTC(), latestKey)
	rec, err := ledger.NewRecord(h.NewID(), now, AuditData(record, head), previous)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	auditKey := ledger.Key(dataset, rec)
	_, err = h.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.LedgerBucket),
		Key:         aws.String(auditKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			MetadataHash:         rec.Hash,
			MetadataPreviousHash: previous,
		},
		ChecksumAlgorithm:         s3types.ChecksumAlgorithmSha256,
		ObjectLockMode:            s3types.ObjectLockModeGovernance,
		ObjectLockRetainUntilDate: aws.Time(now.AddDate(0, 0, RetentionDays)),
		ObjectLockLegalHoldStatus: s3types.ObjectLockLegalHoldStatusOff,
	})
	if err != nil {
		return "", fmt.Errorf("could not write %s: %w", auditKey, err)
	}
	return auditKey, nil
}

// PreviousHash returns the hash of the latest record of dataset, or "" when the dataset has no records.
func (h *Handler) PreviousHash(ctx context.Context, dataset string) (string, error) {
	_, hash, err := h.latest(ctx, dataset)
	return hash, err
}

// latest returns the key and hash of the latest record of dataset. Both are empty when the dataset has
// no records.
func (h *Handler) latest(ctx context.Context, dataset string) (string, string, error) {
	latest := ""
	pages := s3.NewListObjectsV2Paginator(h.S3, &s3.ListObjectsV2Input{
		Bucket: aws.String(h.LedgerBucket),
		Prefix: aws.String(ledger.DatasetPrefix(dataset)),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return "", "", fmt.Errorf("could not list records of dataset %s: %w", dataset, err)
		}
		for _, obj := range page.Contents {
			if k := aws.ToString(obj.Key); k > latest {
				latest = k
			}
		}
	}
	if latest == "" {
		return "", "", nil
	}

	head, err := h.S3.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(h.LedgerBucket), Key: aws.String(latest)})
	if err != nil {
		return "", "", fmt.Errorf("could not read %s: %w", latest, err)
	}
	hash, ok := head.Metadata[MetadataHash]
	if !ok || hash == "" {
		return "", "", fmt.Errorf("latest record %s has no hash metadata", latest)
	}
	return latest, hash, nil
}
