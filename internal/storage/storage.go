// Package storage defines the BlobStore contract shared by the artifact
// writers and selects a concrete provider from configuration.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	gcsstorage "cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/JakeFAU/publisher-directory/internal/storage/gcs"
	"github.com/JakeFAU/publisher-directory/internal/storage/local"
	"github.com/JakeFAU/publisher-directory/internal/storage/s3"
)

// Supported upload providers.
const (
	ProviderGCS   = "gcs"
	ProviderS3    = "s3"
	ProviderLocal = "local"
)

// BlobStore persists one object and returns a URI describing where it went.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Config selects and parameterizes an upload provider.
type Config struct {
	Provider string
	Bucket   string
	Region   string
	Prefix   string
	LocalDir string
}

// New builds the BlobStore named by cfg.Provider. The returned close
// function releases provider clients and is never nil.
func New(ctx context.Context, cfg Config) (BlobStore, func() error, error) {
	noop := func() error { return nil }

	var (
		store   BlobStore
		closeFn = noop
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("create gcs client: %w", err)
		}
		gcsStore, err := gcs.New(client, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		store, closeFn = gcsStore, client.Close
	case ProviderS3:
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, noop, fmt.Errorf("load aws config: %w", err)
		}
		s3Store, err := s3.New(awsCfg, s3.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, noop, err
		}
		store = s3Store
	case ProviderLocal:
		localStore, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, noop, err
		}
		store = localStore
	default:
		return nil, noop, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
	return WithPrefix(store, cfg.Prefix), closeFn, nil
}

// WithPrefix places every object of store under prefix. An empty prefix
// returns store unchanged.
func WithPrefix(store BlobStore, prefix string) BlobStore {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return store
	}
	return &prefixed{store: store, prefix: prefix}
}

type prefixed struct {
	store  BlobStore
	prefix string
}

func (p *prefixed) PutObject(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("path is required")
	}
	return p.store.PutObject(ctx, path.Join(p.prefix, key), contentType, r)
}
