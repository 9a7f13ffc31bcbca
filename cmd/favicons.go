package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/config"
	"github.com/JakeFAU/publisher-directory/internal/dispatcher"
	"github.com/JakeFAU/publisher-directory/internal/favicon"
	collyfetcher "github.com/JakeFAU/publisher-directory/internal/fetcher/colly"
	"github.com/JakeFAU/publisher-directory/internal/lookup"
	"github.com/JakeFAU/publisher-directory/internal/sources"
	"github.com/JakeFAU/publisher-directory/internal/storage/local"
)

func newFaviconsCmd(root *rootOptions) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "favicons",
		Short: "Discovers favicon URLs for every source domain",
		Long: `Fetches the homepage of every domain listed in the sources files,
reads its shortcut-icon link and writes the favicon lookup table. Domains
that cannot be fetched fall back to /favicon.ico.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var overrides []config.Option
			if cmd.Flags().Changed("concurrency") {
				overrides = append(overrides, config.WithOverride("discovery.concurrency", concurrency))
			}
			// Discovery never uploads.
			overrides = append(overrides, config.WithOverride("upload.no_upload", true))
			e, err := setup(cmd, root, overrides...)
			if err != nil {
				return err
			}
			defer syncLogger(e)
			return runFavicons(cmd)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of parallel homepage fetches (default: one per CPU)")
	return cmd
}

func runFavicons(cmd *cobra.Command) error {
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
	discoverer := favicon.New(
		fetcher,
		dispatcher.New(cfg.Discovery.Concurrency),
		favicon.Config{Scheme: cfg.Discovery.DefaultScheme},
		e.logger,
	)
	results := discoverer.Discover(ctx, domains)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("favicon discovery interrupted: %w", err)
	}

	data, err := lookup.EncodeFavicons(favicon.Lookup(results))
	if err != nil {
		return err
	}
	uri, err := writeLookup(ctx, cfg.FaviconLookupPath(), data)
	if err != nil {
		return fmt.Errorf("write favicon lookup: %w", err)
	}
	e.logger.Info("favicon lookup written", zap.String("uri", uri), zap.Int("domains", len(results)))

	finish(ctx, e, cmd.Name())
	return nil
}

// writeLookup stores a lookup artifact at path on local disk.
func writeLookup(ctx context.Context, path string, data []byte) (string, error) {
	store, err := local.New(local.Config{BaseDir: filepath.Dir(path)})
	if err != nil {
		return "", err
	}
	return store.PutObject(ctx, filepath.Base(path), "application/json", bytes.NewReader(data))
}
