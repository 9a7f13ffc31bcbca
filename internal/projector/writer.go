package projector

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/publisher"
	"github.com/JakeFAU/publisher-directory/internal/storage"
)

// Local artifact names.
const (
	FeedFile    = "feed.json"
	SourcesFile = "sources.json"
)

const jsonContentType = "application/json"

// Config names the uploaded list-view objects.
type Config struct {
	// SourcesName is the base name of the sources file, e.g. "sources" or
	// "sources.ja_JP". Uploads go to "{SourcesName}.json" and the legacy
	// "{SourcesName}json".
	SourcesName string
}

// UploadKeys returns the canonical and legacy object keys for the list view.
func (c Config) UploadKeys() []string {
	return []string{c.SourcesName + ".json", c.SourcesName + "json"}
}

// Result reports where each local artifact ended up. List holds the
// serialized list view for a later Upload.
type Result struct {
	FeedURI    string
	SourcesURI string
	List       []byte
}

// Writer persists both views to the output store and publishes the list
// view to a remote store on request.
type Writer struct {
	output storage.BlobStore
	cfg    Config
	logger *zap.Logger
}

// NewWriter builds a Writer over the local output store.
func NewWriter(output storage.BlobStore, cfg Config, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SourcesName == "" {
		cfg.SourcesName = "sources"
	}
	return &Writer{
		output: output,
		cfg:    cfg,
		logger: logger,
	}
}

// Write projects records and stores feed.json and sources.json.
func (w *Writer) Write(ctx context.Context, records []publisher.Record) (Result, error) {
	var res Result

	feed, err := Encode(FeedView(records, w.logger))
	if err != nil {
		return res, fmt.Errorf("encode %s: %w", FeedFile, err)
	}
	list, err := Encode(ListView(records))
	if err != nil {
		return res, fmt.Errorf("encode %s: %w", SourcesFile, err)
	}

	if res.FeedURI, err = put(ctx, w.output, FeedFile, feed); err != nil {
		return res, err
	}
	if res.SourcesURI, err = put(ctx, w.output, SourcesFile, list); err != nil {
		return res, err
	}
	res.List = list
	metrics.ObserveArtifact(FeedFile, len(feed))
	metrics.ObserveArtifact(SourcesFile, len(list))
	w.logger.Info("artifacts written",
		zap.String("feed", res.FeedURI),
		zap.String("sources", res.SourcesURI),
		zap.Int("publishers", len(records)),
	)
	return res, nil
}

// Upload stores the serialized list view under the canonical and the
// legacy key concurrently. Any failure fails the upload as a whole.
func (w *Writer) Upload(ctx context.Context, uploader storage.BlobStore, list []byte) ([]string, error) {
	keys := w.cfg.UploadKeys()
	uris := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			uri, err := put(gctx, uploader, key, list)
			metrics.ObserveUpload(err)
			if err != nil {
				return err
			}
			uris[i] = uri
			w.logger.Info("list view uploaded", zap.String("uri", uri))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", SourcesFile, err)
	}
	return uris, nil
}

func put(ctx context.Context, store storage.BlobStore, key string, data []byte) (string, error) {
	uri, err := store.PutObject(ctx, key, jsonContentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return uri, nil
}
