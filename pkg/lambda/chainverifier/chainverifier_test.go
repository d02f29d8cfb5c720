package chainverifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v4"
	"github.com/grace-platform/grace/pkg/ledger"
	"github.com/grace-platform/grace/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerBucket = "grace-ledger"

// writeChain stores n linked records for dataset and returns their keys.
func writeChain(t *testing.T, fake *testutil.FakeS3, dataset string, n int) []string {
	t.Helper()
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	previous := ""
	var keys []string
	for i := 0; i < n; i++ {
		rec, err := ledger.NewRecord(fmt.Sprintf("id-%d", i), at.Add(time.Duration(i)*time.Second),
			map[string]any{"source_key": fmt.Sprintf("%s/file-%d.csv", dataset, i), "object_size": int64(i)}, previous)
		require.NoError(t, err)
		body, err := json.Marshal(rec)
		require.NoError(t, err)
		key := ledger.Key(dataset, rec)
		fake.Put(ledgerBucket, key, body, map[string]string{"hash": rec.Hash})
		keys = append(keys, key)
		previous = rec.Hash
	}
	return keys
}

func request(dataset string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:     "POST",
		Path:           "/audits/" + dataset + "/verify",
		PathParameters: map[string]string{"datasetId": dataset},
	}
}

func decode(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestHandle_Verified(t *testing.T) {
	fake := testutil.NewFakeS3()
	fake.PageSize = 2
	keys := writeChain(t, fake, "ds1", 5)
	writeChain(t, fake, "ds2", 1)
	h := &Handler{S3: fake, LedgerBucket: ledgerBucket}

	resp, err := h.Handle(context.Background(), request("ds1"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "ds1", body["dataset_id"])
	assert.Equal(t, float64(5), body["record_count"])
	records := body["records"].([]any)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, keys[i], r.(map[string]any)["key"])
	}
}

func TestHandle_NotVerified(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		tamper  func(t *testing.T, fake *testutil.FakeS3, keys []string)
		wantErr string
	}{
		{
			name:    "no records",
			dataset: "other",
			wantErr: "No audit records found for dataset other",
		},
		{
			name: "tampered data",
			tamper: func(t *testing.T, fake *testutil.FakeS3, keys []string) {
				obj, _ := fake.Object(ledgerBucket, keys[1])
				rec, err := ledger.ParseRecord(obj.Body)
				require.NoError(t, err)
				rec.Data["object_size"] = 1000
				body, err := json.Marshal(rec)
				require.NoError(t, err)
				fake.Put(ledgerBucket, keys[1], body, obj.Metadata)
			},
			wantErr: "Hash mismatch",
		},
		{
			name: "unreadable record",
			tamper: func(t *testing.T, fake *testutil.FakeS3, keys []string) {
				fake.Put(ledgerBucket, keys[1], []byte("not json"), nil)
			},
			wantErr: keys1Suffix,
		},
		{
			name: "inserted record",
			tamper: func(t *testing.T, fake *testutil.FakeS3, keys []string) {
				rec, err := ledger.NewRecord("forged", time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC),
					map[string]any{"source_key": "ds1/forged.csv"}, "")
				require.NoError(t, err)
				body, err := json.Marshal(rec)
				require.NoError(t, err)
				fake.Put(ledgerBucket, ledger.Key("ds1", rec), body, nil)
			},
			wantErr: "Chain broken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3()
			keys := writeChain(t, fake, "ds1", 3)
			if tt.tamper != nil {
				tt.tamper(t, fake, keys)
			}
			h := &Handler{S3: fake, LedgerBucket: ledgerBucket}

			dataset := tt.dataset
			if dataset == "" {
				dataset = "ds1"
			}
			resp, err := h.Handle(context.Background(), request(dataset))
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			body := decode(t, resp)
			assert.Equal(t, false, body["verified"])
			assert.Contains(t, body["error"], tt.wantErr)
			assert.NotContains(t, body, "records")
		})
	}
}

// keys1Suffix is part of the key of the second record written by writeChain.
const keys1Suffix = "12:30:01.000000-id-1.json"

func TestHandle_Errors(t *testing.T) {
	fake := testutil.NewFakeS3()
	h := &Handler{S3: fake, LedgerBucket: ledgerBucket}

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{})
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["verified"])

	fake.Err = errors.New("AccessDenied")
	resp, err = h.Handle(context.Background(), request("ds1"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "AccessDenied")
}

func TestRequester(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":              "0c4f",
		"cognito:username": "analyst",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  events.APIGatewayProxyRequest
		want string
	}{
		{
			name: "authorizer claims",
			req: events.APIGatewayProxyRequest{RequestContext: events.APIGatewayProxyRequestContext{
				Authorizer: map[string]any{"claims": map[string]any{"email": "analyst@example.com", "sub": "0c4f"}},
			}},
			want: "analyst@example.com",
		},
		{
			name: "bearer token",
			req:  events.APIGatewayProxyRequest{Headers: map[string]string{"Authorization": "Bearer " + token}},
			want: "analyst",
		},
		{
			name: "raw token",
			req:  events.APIGatewayProxyRequest{Headers: map[string]string{"authorization": token}},
			want: "analyst",
		},
		{
			name: "malformed token",
			req:  events.APIGatewayProxyRequest{Headers: map[string]string{"Authorization": "Bearer nope"}},
			want: "",
		},
		{
			name: "anonymous",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Requester(tt.req))
		})
	}
}
