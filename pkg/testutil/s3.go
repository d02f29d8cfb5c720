package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type (
	// FakeS3 is an in-memory S3 for handler tests. It implements only the operations the handlers use.
	FakeS3 struct {
		mu      sync.Mutex
		objects map[string]map[string]*FakeObject
		// PageSize limits ListObjectsV2 pages so that pagination is exercised.
		PageSize int
		// Err, when set, is returned by every call.
		Err error
	}

	FakeObject struct {
		Body        []byte
		ContentType string
		Metadata    map[string]string
		ETag        string
		Input       *s3.PutObjectInput
	}
)

func NewFakeS3() *FakeS3 {
	return &FakeS3{objects: make(map[string]map[string]*FakeObject), PageSize: 1000}
}

// Put stores an object directly, as if it had been uploaded.
func (f *FakeS3) Put(bucket, key string, body []byte, metadata map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string]*FakeObject)
	}
	f.objects[bucket][key] = &FakeObject{Body: body, Metadata: metadata, ETag: fmt.Sprintf(`"etag-%d"`, len(body))}
}

func (f *FakeS3) Object(bucket, key string) (*FakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[bucket][key]
	return obj, ok
}

// Keys returns the sorted keys of bucket that start with prefix.
func (f *FakeS3) Keys(bucket, prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func notFound(bucket, key string) error {
	return &s3types.NoSuchKey{Message: aws.String(fmt.Sprintf("s3://%s/%s not found", bucket, key))}
}

func (f *FakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	bucket, key := aws.ToString(in.Bucket), aws.ToString(in.Key)
	obj, ok := f.Object(bucket, key)
	if !ok {
		return nil, notFound(bucket, key)
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ETag:          aws.String(obj.ETag),
		ContentType:   aws.String(obj.ContentType),
		Metadata:      obj.Metadata,
	}, nil
}

func (f *FakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	bucket, key := aws.ToString(in.Bucket), aws.ToString(in.Key)
	obj, ok := f.Object(bucket, key)
	if !ok {
		return nil, notFound(bucket, key)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Body)),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		Metadata:      obj.Metadata,
	}, nil
}

func (f *FakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	bucket, key := aws.ToString(in.Bucket), aws.ToString(in.Key)
	f.Put(bucket, key, body, in.Metadata)
	f.mu.Lock()
	defer f.mu.Unlock()
	obj := f.objects[bucket][key]
	obj.ContentType = aws.ToString(in.ContentType)
	obj.Input = in
	return &s3.PutObjectOutput{ETag: aws.String(obj.ETag)}, nil
}

// ListObjectsV2 lists keys in order. The continuation token is the last key of the previous page.
func (f *FakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	keys := f.Keys(aws.ToString(in.Bucket), aws.ToString(in.Prefix))
	start := 0
	if token := aws.ToString(in.ContinuationToken); token != "" {
		start = sort.SearchStrings(keys, token) + 1
	}
	end := start + f.PageSize
	if end > len(keys) {
		end = len(keys)
	}
	out := &s3.ListObjectsV2Output{KeyCount: aws.Int32(int32(end - start))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end-1])
	} else {
		out.IsTruncated = aws.Bool(false)
	}
	return out, nil
}
