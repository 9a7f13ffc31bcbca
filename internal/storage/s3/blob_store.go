// Package s3 provides a BlobStore backed by Amazon S3 or an S3-compatible
// endpoint.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config captures the bucket and optional endpoint overrides.
type Config struct {
	Bucket string
	// Endpoint points the client at an S3-compatible service. Path-style
	// addressing is used when it is set.
	Endpoint string
}

// BlobStore uploads artifacts to an S3 bucket.
type BlobStore struct {
	client *s3.Client
	bucket string
}

// New creates an S3-backed blob store from an AWS configuration.
func New(awsCfg aws.Config, cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// PutObject buffers r and uploads it, returning an s3:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	// The SDK needs a seekable body to sign and retry the request.
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object data: %w", err)
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.bucket, path, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, path), nil
}
