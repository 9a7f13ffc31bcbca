// Package builder turns streamed publisher rows into validated, enriched records.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/lookup"
	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/publisher"
	"github.com/JakeFAU/publisher-directory/internal/sources"
)

// RowSource yields raw rows until io.EOF.
type RowSource interface {
	Next() (publisher.RawRow, int, error)
}

// RowParser validates one raw row.
type RowParser interface {
	Parse(raw publisher.RawRow) (publisher.Record, error)
}

// FaviconLookup resolves a site URL to its favicon URL.
type FaviconLookup interface {
	Get(siteURL string) (string, bool)
}

// CoverInfoLookup resolves a site URL to its cover image and background color.
type CoverInfoLookup interface {
	Get(siteURL string) (lookup.CoverInfo, bool)
}

// Stats summarizes one Build call.
type Stats struct {
	Rows    int
	Valid   int
	Invalid int
}

// Builder validates and enriches publisher rows. The lookups are only read.
type Builder struct {
	parser   RowParser
	favicons FaviconLookup
	covers   CoverInfoLookup
	logger   *zap.Logger
}

// New constructs a Builder. Nil lookups behave as empty tables.
func New(parser RowParser, favicons FaviconLookup, covers CoverInfoLookup, logger *zap.Logger) *Builder {
	if favicons == nil {
		favicons = lookup.Favicons{}
	}
	if covers == nil {
		covers = lookup.CoverInfos{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		parser:   parser,
		favicons: favicons,
		covers:   covers,
		logger:   logger,
	}
}

// Build drains src and returns the valid records in input order. Invalid
// rows are logged and skipped; only a read failure of src itself, or
// context cancellation, aborts the build.
func (b *Builder) Build(ctx context.Context, src RowSource) ([]publisher.Record, Stats, error) {
	records := []publisher.Record{}
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("build canceled: %w", err)
		}
		raw, line, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *sources.RowError
		if errors.As(err, &rowErr) {
			stats.Rows++
			stats.Invalid++
			metrics.ObservePublisherRow(false)
			b.logger.Error("unreadable publisher row", zap.Int("line", rowErr.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read publisher rows: %w", err)
		}

		stats.Rows++
		rec, err := b.parser.Parse(raw)
		if err != nil {
			stats.Invalid++
			metrics.ObservePublisherRow(false)
			b.logger.Error("invalid publisher row",
				zap.Int("line", line),
				zap.Any("row", raw),
				zap.Error(err),
			)
			continue
		}
		stats.Valid++
		metrics.ObservePublisherRow(true)
		records = append(records, b.Enrich(rec))
	}

	b.logger.Info("publisher records built",
		zap.Int("rows", stats.Rows),
		zap.Int("valid", stats.Valid),
		zap.Int("invalid", stats.Invalid),
	)
	return records, stats, nil
}

// Enrich overwrites the favicon, cover and background color of rec from the
// lookup tables. Missing entries leave the fields nil.
func (b *Builder) Enrich(rec publisher.Record) publisher.Record {
	rec.FaviconURL = nil
	if favicon, ok := b.favicons.Get(rec.SiteURL); ok {
		rec.FaviconURL = &favicon
	}

	rec.CoverURL = nil
	rec.BackgroundColor = nil
	if cover, ok := b.covers.Get(rec.SiteURL); ok {
		rec.CoverURL = cloneString(cover.CoverURL)
		rec.BackgroundColor = cloneString(cover.BackgroundColor)
	}
	return rec
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
