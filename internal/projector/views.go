// Package projector derives the publisher-facing list view and the
// feed-facing keyed view from validated records and writes both artifacts.
package projector

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/publisher"
)

// ListEntry is one element of sources.json.
type ListEntry struct {
	Enabled            bool     `json:"enabled"`
	PublisherName      string   `json:"publisher_name"`
	Category           string   `json:"category"`
	SiteURL            string   `json:"site_url"`
	FeedURL            string   `json:"feed_url"`
	FaviconURL         *string  `json:"favicon_url"`
	CoverURL           *string  `json:"cover_url"`
	BackgroundColor    *string  `json:"background_color"`
	Score              float64  `json:"score"`
	Channels           []string `json:"channels"`
	Rank               *int     `json:"rank"`
	PublisherID        string   `json:"publisher_id"`
	DestinationDomains []string `json:"destination_domains"`
}

// FeedEntry is one value of feed.json, keyed by its FeedURL.
type FeedEntry struct {
	Category           string                `json:"category"`
	PublisherName      string                `json:"publisher_name"`
	ContentType        publisher.ContentType `json:"content_type"`
	PublisherDomain    string                `json:"publisher_domain"`
	PublisherID        string                `json:"publisher_id"`
	MaxEntries         int                   `json:"max_entries"`
	OGImages           bool                  `json:"og_images"`
	CreativeInstanceID string                `json:"creative_instance_id"`
	FeedURL            string                `json:"feed_url"`
	SiteURL            string                `json:"site_url"`
	DestinationDomains []string              `json:"destination_domains"`
}

// ToListEntry projects rec onto the list-view fields.
func ToListEntry(rec publisher.Record) ListEntry {
	return ListEntry{
		Enabled:            rec.Enabled,
		PublisherName:      rec.PublisherName,
		Category:           rec.Category,
		SiteURL:            rec.SiteURL,
		FeedURL:            rec.FeedURL,
		FaviconURL:         rec.FaviconURL,
		CoverURL:           rec.CoverURL,
		BackgroundColor:    rec.BackgroundColor,
		Score:              rec.Score,
		Channels:           nonNil(rec.Channels),
		Rank:               rec.Rank,
		PublisherID:        rec.PublisherID,
		DestinationDomains: nonNil(rec.DestinationDomains),
	}
}

// ToFeedEntry projects rec onto the keyed-view fields.
func ToFeedEntry(rec publisher.Record) FeedEntry {
	return FeedEntry{
		Category:           rec.Category,
		PublisherName:      rec.PublisherName,
		ContentType:        rec.ContentType,
		PublisherDomain:    rec.PublisherDomain,
		PublisherID:        rec.PublisherID,
		MaxEntries:         rec.MaxEntries,
		OGImages:           rec.OGImages,
		CreativeInstanceID: rec.CreativeInstanceID,
		FeedURL:            rec.FeedURL,
		SiteURL:            rec.SiteURL,
		DestinationDomains: nonNil(rec.DestinationDomains),
	}
}

// ListView projects every record and sorts by publisher name using
// byte-wise, case-sensitive order. Equal names keep their input order.
func ListView(records []publisher.Record) []ListEntry {
	out := make([]ListEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, ToListEntry(rec))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Compare(out[i].PublisherName, out[j].PublisherName) < 0
	})
	return out
}

// FeedView keys every record by feed URL. When two records share a feed URL
// the later one wins and the collision is logged.
func FeedView(records []publisher.Record, logger *zap.Logger) map[string]FeedEntry {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make(map[string]FeedEntry, len(records))
	for _, rec := range records {
		if prev, ok := out[rec.FeedURL]; ok {
			metrics.ObserveDuplicateFeedURL()
			logger.Warn("duplicate feed_url; keeping the later publisher",
				zap.String("feed_url", rec.FeedURL),
				zap.String("dropped", prev.PublisherName),
				zap.String("kept", rec.PublisherName),
			)
		}
		out[rec.FeedURL] = ToFeedEntry(rec)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
