package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/config"
	"github.com/JakeFAU/publisher-directory/internal/covers"
	"github.com/JakeFAU/publisher-directory/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/publisher-directory/internal/fetcher/colly"
	"github.com/JakeFAU/publisher-directory/internal/lookup"
	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/sources"
	"github.com/JakeFAU/publisher-directory/internal/storage"
)

func newCoversCmd(root *rootOptions) *cobra.Command {
	var (
		concurrency int
		noUpload    bool
	)
	cmd := &cobra.Command{
		Use:   "covers",
		Short: "Picks a cover image and background color for every source domain",
		Long: `Fetches the homepage of every domain listed in the sources files and
collects image candidates from its web app manifest, its apple-touch-icon
and icon links and its og:image, twitter:image and image metas, in that
order of preference. The largest decodable image of the first tier with
any wins and its median edge color becomes the background color. The
cover info lookup is written to the output directory and, unless uploads
are disabled, published to the configured bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var overrides []config.Option
			if cmd.Flags().Changed("concurrency") {
				overrides = append(overrides, config.WithOverride("discovery.concurrency", concurrency))
			}
			if cmd.Flags().Changed("no-upload") {
				overrides = append(overrides, config.WithOverride("upload.no_upload", noUpload))
			}
			e, err := setup(cmd, root, overrides...)
			if err != nil {
				return err
			}
			defer syncLogger(e)
			return runCovers(cmd)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of domains searched in parallel (default: one per CPU)")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "skip publishing the cover info lookup to the bucket")
	return cmd
}

func runCovers(cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := envFrom(ctx)
	if err != nil {
		return err
	}
	cfg := e.cfg

	domains, err := sources.Domains(cfg.Sources.Dir, cfg.Sources.Glob)
	if err != nil {
		return fmt.Errorf("collect domains: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Discovery.UserAgent,
		Timeout:   cfg.DiscoveryTimeout(),
	})
	finder := covers.New(
		fetcher,
		dispatcher.New(cfg.Discovery.Concurrency),
		covers.Config{Scheme: cfg.Discovery.DefaultScheme},
		e.logger,
	)
	results := finder.Find(ctx, domains)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cover search interrupted: %w", err)
	}

	table := covers.Lookup(results)
	data, err := lookup.EncodeCoverInfos(table)
	if err != nil {
		return err
	}
	path := cfg.CoverInfoLookupPath()
	uri, err := writeLookup(ctx, path, data)
	if err != nil {
		return fmt.Errorf("write cover info lookup: %w", err)
	}
	metrics.ObserveArtifact(filepath.Base(path), len(data))
	e.logger.Info("cover info lookup written",
		zap.String("uri", uri),
		zap.Int("domains", len(results)),
		zap.Int("covers", len(table)),
	)

	if cfg.Upload.NoUpload {
		e.logger.Info("upload disabled; cover info lookup kept local")
	} else if err := uploadLookup(ctx, e, filepath.Base(path), data); err != nil {
		return err
	}

	finish(ctx, e, cmd.Name())
	return nil
}

func uploadLookup(ctx context.Context, e *env, name string, data []byte) error {
	store, closeStore, err := storage.New(ctx, e.cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("open upload store: %w", err)
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			e.logger.Warn("close upload store", zap.Error(cerr))
		}
	}()
	uri, err := store.PutObject(ctx, name, "application/json", bytes.NewReader(data))
	metrics.ObserveUpload(err)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	e.logger.Info("cover info lookup uploaded", zap.String("uri", uri))
	return nil
}
