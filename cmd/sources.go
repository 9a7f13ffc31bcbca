package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/builder"
	"github.com/JakeFAU/publisher-directory/internal/config"
	"github.com/JakeFAU/publisher-directory/internal/hash/sha256"
	"github.com/JakeFAU/publisher-directory/internal/lookup"
	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/projector"
	"github.com/JakeFAU/publisher-directory/internal/publisher"
	"github.com/JakeFAU/publisher-directory/internal/sources"
	"github.com/JakeFAU/publisher-directory/internal/storage"
	"github.com/JakeFAU/publisher-directory/internal/storage/local"
)

func newSourcesCmd(root *rootOptions) *cobra.Command {
	var noUpload bool
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Builds feed.json and sources.json from the sources file",
		Long: `Reads {sources.dir}/{sources.file}.csv, validates every row, enriches
the valid publishers from the favicon and cover info lookups and writes
feed.json and sources.json to the output directory. Unless uploads are
disabled, sources.json is also published to the configured bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var overrides []config.Option
			if cmd.Flags().Changed("no-upload") {
				overrides = append(overrides, config.WithOverride("upload.no_upload", noUpload))
			}
			e, err := setup(cmd, root, overrides...)
			if err != nil {
				return err
			}
			defer syncLogger(e)
			return runSources(cmd)
		},
	}
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "skip publishing sources.json to the bucket")
	return cmd
}

func runSources(cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := envFrom(ctx)
	if err != nil {
		return err
	}
	cfg := e.cfg

	favicons, err := lookup.LoadFavicons(cfg.FaviconLookupPath())
	if err != nil {
		favicons = lookup.Favicons{}
		lookupUnavailable(e.logger, "favicon", err)
	}
	covers, err := lookup.LoadCoverInfos(cfg.CoverInfoLookupPath())
	if err != nil {
		covers = lookup.CoverInfos{}
		lookupUnavailable(e.logger, "cover_info", err)
	}

	path := cfg.SourcesPath()
	// #nosec G304 -- the sources path comes from operator configuration.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sources: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	reader, err := sources.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	b := builder.New(
		publisher.NewParser(sha256.New(), cfg.Discovery.DefaultScheme),
		favicons,
		covers,
		e.logger,
	)
	records, _, err := b.Build(ctx, reader)
	if err != nil {
		return err
	}

	output, err := local.New(local.Config{BaseDir: cfg.Output.Dir})
	if err != nil {
		return fmt.Errorf("open output dir: %w", err)
	}
	w := projector.NewWriter(output, projector.Config{SourcesName: cfg.Sources.File}, e.logger)
	res, err := w.Write(ctx, records)
	if err != nil {
		return err
	}

	if cfg.Upload.NoUpload {
		e.logger.Info("upload disabled")
	} else if err := upload(ctx, e, w, res.List); err != nil {
		return err
	}

	finish(ctx, e, cmd.Name())
	return nil
}

func upload(ctx context.Context, e *env, w *projector.Writer, list []byte) error {
	store, closeStore, err := storage.New(ctx, e.cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("open upload store: %w", err)
	}
	defer func() {
		if cerr := closeStore(); cerr != nil {
			e.logger.Warn("close upload store", zap.Error(cerr))
		}
	}()
	if _, err := w.Upload(ctx, store, list); err != nil {
		return err
	}
	return nil
}

// lookupUnavailable records a lookup replaced by an empty table. Enrichment
// data never blocks the artifacts, so this is logged rather than returned.
func lookupUnavailable(logger *zap.Logger, name string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		metrics.ObserveLookupFailure(name, "missing")
		logger.Warn("lookup missing; enrichment fields will be null",
			zap.String("lookup", name),
			zap.Error(err),
		)
		return
	}
	metrics.ObserveLookupFailure(name, "unreadable")
	logger.Error("lookup unreadable; enrichment fields will be null",
		zap.String("lookup", name),
		zap.Error(err),
	)
}
