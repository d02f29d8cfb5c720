package audithandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/grace-platform/grace/pkg/ledger"
	"github.com/grace-platform/grace/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	uploads = "grace-uploads"
	ledgerB = "grace-ledger"
)

var testNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func newTestHandler(fake *testutil.FakeS3) *Handler {
	h := NewHandler(fake, ledgerB)
	n := 0
	h.Now = func() time.Time {
		n++
		return testNow.Add(time.Duration(n) * time.Second)
	}
	h.NewID = func() string { return fmt.Sprintf("id-%d", n) }
	return h
}

func s3Record(key string) events.S3EventRecord {
	var r events.S3EventRecord
	r.EventName = "ObjectCreated:Put"
	r.EventTime = testNow
	r.PrincipalID.PrincipalID = "AWS:AIDAEXAMPLE"
	r.S3.Bucket.Name = uploads
	r.S3.Object.Key = key
	r.S3.Object.URLDecodedKey = key
	return r
}

func readRecord(t *testing.T, fake *testutil.FakeS3, key string) ledger.Record {
	t.Helper()
	obj, ok := fake.Object(ledgerB, key)
	require.True(t, ok, key)
	r, err := ledger.ParseRecord(obj.Body)
	require.NoError(t, err)
	return r
}

func TestHandle_Chain(t *testing.T) {
	fake := testutil.NewFakeS3()
	fake.PageSize = 1
	fake.Put(uploads, "ds1/a.csv", []byte("hello"), nil)
	fake.Put(uploads, "ds1/b.csv", []byte("hello world"), nil)
	fake.Put(uploads, "ds2/c.csv", []byte("x"), nil)
	h := newTestHandler(fake)

	resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record("ds1/a.csv"), s3Record("ds1/b.csv"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"message": "Audit records created successfully"}`, resp.Body)

	resp, err = h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{s3Record("ds2/c.csv")}})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	keys := fake.Keys(ledgerB, "audit/ds1/")
	require.Equal(t, []string{
		"audit/ds1/2024-03-01T12:30:01.000000-id-1.json",
		"audit/ds1/2024-03-01T12:30:02.000000-id-2.json",
	}, keys)
	first, second := readRecord(t, fake, keys[0]), readRecord(t, fake, keys[1])
	assert.Empty(t, first.PreviousHash)
	assert.Equal(t, first.Hash, second.PreviousHash)

	assert.Equal(t, map[string]any{
		"source_bucket": uploads,
		"source_key":    "ds1/a.csv",
		"event_time":    "2024-03-01T12:30:00.000Z",
		"object_size":   json.Number("5"),
		"object_etag":   "etag-5",
		"event_name":    "ObjectCreated:Put",
		"user_identity": "AWS:AIDAEXAMPLE",
	}, first.Data)

	var entries []ledger.Entry
	for _, k := range keys {
		entries = append(entries, ledger.Entry{Key: k, Record: readRecord(t, fake, k)})
	}
	_, err = ledger.Verify(entries)
	assert.NoError(t, err)

	// Datasets have independent chains.
	other := fake.Keys(ledgerB, "audit/ds2/")
	require.Len(t, other, 1)
	assert.Empty(t, readRecord(t, fake, other[0]).PreviousHash)
}

func TestHandle_KeysFollowChainOrder(t *testing.T) {
	fake := testutil.NewFakeS3()
	fake.Put(uploads, "ds1/a.csv", []byte("a"), nil)
	fake.Put(uploads, "ds1/b.csv", []byte("b"), nil)
	fake.Put(uploads, "ds1/c.csv", []byte("c"), nil)
	h := newTestHandler(fake)
	ids := []string{"zzz", "mmm", "aaa"}
	n := 0
	// Every write sees the same instant, and ids that sort against the write order.
	h.Now = func() time.Time { return testNow }
	h.NewID = func() string {
		n++
		return ids[n-1]
	}

	resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Record("ds1/a.csv"), s3Record("ds1/b.csv"), s3Record("ds1/c.csv"),
	}})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	keys := fake.Keys(ledgerB, "audit/ds1/")
	require.Equal(t, []string{
		"audit/ds1/2024-03-01T12:30:00.000000-zzz.json",
		"audit/ds1/2024-03-01T12:30:00.000001-mmm.json",
		"audit/ds1/2024-03-01T12:30:00.000002-aaa.json",
	}, keys)

	var entries []ledger.Entry
	for _, k := range keys {
		entries = append(entries, ledger.Entry{Key: k, Record: readRecord(t, fake, k)})
	}
	_, err = ledger.Verify(entries)
	assert.NoError(t, err)
}

func TestHandle_PutObject(t *testing.T) {
	fake := testutil.NewFakeS3()
	fake.Put(uploads, "ds1/a.csv", []byte("hello"), nil)
	h := newTestHandler(fake)

	_, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{s3Record("ds1/a.csv")}})
	require.NoError(t, err)

	keys := fake.Keys(ledgerB, "audit/")
	require.Len(t, keys, 1)
	obj, _ := fake.Object(ledgerB, keys[0])
	rec := readRecord(t, fake, keys[0])

	assert.Equal(t, "application/json", obj.ContentType)
	assert.Equal(t, map[string]string{"hash": rec.Hash, "previous_hash": ""}, obj.Metadata)
	assert.Equal(t, s3types.ObjectLockModeGovernance, obj.Input.ObjectLockMode)
	assert.Equal(t, s3types.ObjectLockLegalHoldStatusOff, obj.Input.ObjectLockLegalHoldStatus)
	require.NotNil(t, obj.Input.ObjectLockRetainUntilDate)
	assert.Equal(t, testNow.Add(time.Second).AddDate(0, 0, 365), *obj.Input.ObjectLockRetainUntilDate)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(obj.Body, &raw))
	assert.Contains(t, raw, "previous_hash")
	assert.Nil(t, raw["previous_hash"])
}

func TestHandle_Errors(t *testing.T) {
	t.Run("missing object", func(t *testing.T) {
		h := newTestHandler(testutil.NewFakeS3())
		resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{s3Record("ds1/gone.csv")}})
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
		assert.Equal(t, "Error creating audit records", body["message"])
		assert.Contains(t, body["error"], "ds1/gone.csv")
	})
	t.Run("latest record without hash", func(t *testing.T) {
		fake := testutil.NewFakeS3()
		fake.Put(uploads, "ds1/a.csv", []byte("hello"), nil)
		fake.Put(ledgerB, "audit/ds1/2024-01-01T00:00:00.000000-x.json", []byte("{}"), nil)
		h := newTestHandler(fake)
		resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{s3Record("ds1/a.csv")}})
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
		assert.Len(t, fake.Keys(ledgerB, "audit/"), 1, "no record is written")
	})
	t.Run("s3 unavailable", func(t *testing.T) {
		fake := testutil.NewFakeS3()
		fake.Err = errors.New("throttled")
		h := newTestHandler(fake)
		resp, err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{s3Record("ds1/a.csv")}})
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)
	})
}

func TestPreviousHash(t *testing.T) {
	fake := testutil.NewFakeS3()
	fake.PageSize = 2
	for i, hash := range []string{"h1", "h2", "h3", "h4", "h5"} {
		fake.Put(ledgerB, fmt.Sprintf("audit/ds1/2024-03-01T12:30:0%d.000000-x.json", i), []byte("{}"), map[string]string{"hash": hash})
	}
	fake.Put(ledgerB, "audit/ds10/2099-01-01T00:00:00.000000-x.json", []byte("{}"), map[string]string{"hash": "other"})
	h := newTestHandler(fake)

	hash, err := h.PreviousHash(context.Background(), "ds1")
	require.NoError(t, err)
	assert.Equal(t, "h5", hash)

	hash, err = h.PreviousHash(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, hash)
}
