package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/platinummonkey/stash/pkg/observability"
)

// Client is the slice of the S3 API the adapter needs. *s3.Client satisfies
// it; tests supply a fake.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Adapter stores one JSON object per key under "<namespace>/<key>.json".
type Adapter struct {
	client    Client
	bucket    string
	namespace string
	metrics   *observability.Metrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMetrics instruments the adapter's operations.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New creates an adapter writing into bucket under the namespace prefix.
func New(client Client, bucket, namespace string, opts ...Option) *Adapter {
	a := &Adapter{client: client, bucket: bucket, namespace: namespace}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) objectKey(key string) string {
	return fmt.Sprintf("%s/%s.json", a.namespace, key)
}

// GetItem returns the object body for key, or nil when the object does not
// exist.
func (a *Adapter) GetItem(ctx context.Context, key string) (json.RawMessage, error) {
	start := time.Now()
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			a.metrics.ObserveStorageOperation("get", "s3", start, nil)
			return nil, nil
		}
		a.metrics.ObserveStorageOperation("get", "s3", start, err)
		return nil, fmt.Errorf("failed to read %q from s3: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	a.metrics.ObserveStorageOperation("get", "s3", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q object body: %w", key, err)
	}
	return data, nil
}

// SetItem writes value as the object for key. An absent value deletes the
// object instead.
func (a *Adapter) SetItem(ctx context.Context, key string, value json.RawMessage) error {
	if len(value) == 0 || string(value) == "null" {
		return a.RemoveItem(ctx, key)
	}

	start := time.Now()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	a.metrics.ObserveStorageOperation("set", "s3", start, err)
	if err != nil {
		return fmt.Errorf("failed to write %q to s3: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the object for key.
func (a *Adapter) RemoveItem(ctx context.Context, key string) error {
	start := time.Now()
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(key)),
	})
	a.metrics.ObserveStorageOperation("remove", "s3", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete %q from s3: %w", key, err)
	}
	return nil
}
