// Package favicon discovers favicon URLs for publisher domains by fetching
// each homepage and reading its shortcut-icon link.
package favicon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/publisher-directory/internal/fetcher/colly"
	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/weburl"
)

// DefaultIconPath is used whenever a page offers no usable shortcut icon.
const DefaultIconPath = "/favicon.ico"

// Outcome labels how a favicon URL was obtained.
type Outcome string

// Discovery outcomes.
const (
	OutcomeFound   Outcome = "found"
	OutcomeDefault Outcome = "default"
	OutcomeFailed  Outcome = "failed"
	OutcomeInvalid Outcome = "invalid"
)

// ErrNotHTML marks a response whose content type cannot hold a link element.
var ErrNotHTML = errors.New("response is not html")

// ErrInvalidDomain marks an input that does not form an http(s) site URL.
var ErrInvalidDomain = errors.New("domain is not a valid site url")

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (collyfetcher.Page, error)
}

// FetchError reports why a domain fell back to the default icon path.
type FetchError struct {
	Domain string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch favicon for %s: %v", e.Domain, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Result is the discovery outcome for one input domain. FaviconURL is an
// absolute URL for every outcome except OutcomeInvalid, where it is empty.
type Result struct {
	Domain     string
	SiteURL    string
	FaviconURL string
	Outcome    Outcome
	Err        error
}

// Config controls domain normalization.
type Config struct {
	Scheme string
}

// Discoverer resolves favicon URLs for a batch of domains.
type Discoverer struct {
	fetcher Fetcher
	pool    *dispatcher.Dispatcher
	scheme  string
	logger  *zap.Logger
}

// New wires a Discoverer. A nil pool uses one worker per CPU.
func New(fetcher Fetcher, pool *dispatcher.Dispatcher, cfg Config, logger *zap.Logger) *Discoverer {
	if pool == nil {
		pool = dispatcher.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		fetcher: fetcher,
		pool:    pool,
		scheme:  cfg.Scheme,
		logger:  logger,
	}
}

// Discover returns exactly one Result per input domain, in input order.
// Per-domain failures degrade to the default icon path and never abort the batch.
func (d *Discoverer) Discover(ctx context.Context, domains []string) []Result {
	d.logger.Info("discovering favicons",
		zap.Int("domains", len(domains)),
		zap.Int("workers", d.pool.Workers()),
	)
	results := dispatcher.Map(ctx, d.pool, domains, d.discoverOne)

	counts := map[Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	d.logger.Info("favicon discovery finished",
		zap.Int("found", counts[OutcomeFound]),
		zap.Int("default", counts[OutcomeDefault]),
		zap.Int("failed", counts[OutcomeFailed]),
		zap.Int("invalid", counts[OutcomeInvalid]),
	)
	return results
}

func (d *Discoverer) discoverOne(ctx context.Context, domain string) Result {
	start := time.Now()
	siteURL := weburl.EnsureScheme(domain, d.scheme)
	result := Result{Domain: domain, SiteURL: siteURL, Outcome: OutcomeDefault}
	if !weburl.IsAbsoluteHTTP(siteURL) {
		result.Outcome = OutcomeInvalid
		result.Err = &FetchError{Domain: domain, Err: ErrInvalidDomain}
		d.logger.Error("invalid domain; no favicon recorded", zap.String("domain", domain))
		metrics.ObserveFaviconDiscovery(string(result.Outcome), time.Since(start))
		return result
	}

	iconPath := DefaultIconPath
	href, err := d.iconHref(ctx, siteURL)
	switch {
	case err != nil:
		result.Err = &FetchError{Domain: siteURL, Err: err}
		result.Outcome = OutcomeFailed
		d.logger.Warn("favicon fetch failed; using default path",
			zap.String("domain", siteURL),
			zap.String("icon_path", iconPath),
			zap.Error(err),
		)
	case href != "":
		iconPath = href
		result.Outcome = OutcomeFound
	}

	result.FaviconURL = d.resolve(siteURL, iconPath)
	metrics.ObserveFaviconDiscovery(string(result.Outcome), time.Since(start))
	return result
}

func (d *Discoverer) iconHref(ctx context.Context, siteURL string) (string, error) {
	page, err := d.fetcher.Fetch(ctx, siteURL)
	if err != nil {
		return "", err
	}
	if ct := page.ContentType(); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return "", fmt.Errorf("%w: %s", ErrNotHTML, ct)
	}
	return ExtractShortcutIcon(bytes.NewReader(page.Body))
}

func (d *Discoverer) resolve(siteURL, iconPath string) string {
	resolved, err := weburl.Resolve(siteURL, iconPath)
	if err == nil && weburl.IsAbsoluteHTTP(resolved) {
		return resolved
	}
	if iconPath == DefaultIconPath {
		return ""
	}
	d.logger.Warn("unresolvable favicon href; using default path",
		zap.String("domain", siteURL),
		zap.String("href", iconPath),
	)
	return d.resolve(siteURL, DefaultIconPath)
}

// ExtractShortcutIcon returns the href of the first <link rel="shortcut icon">
// in the document, or "" when there is none or its href is empty.
func ExtractShortcutIcon(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var href string
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if strings.Join(strings.Fields(strings.ToLower(rel)), " ") != "shortcut icon" {
			return true
		}
		value, _ := s.Attr("href")
		href = strings.TrimSpace(value)
		return false
	})
	return href, nil
}

// Lookup builds the domain-to-favicon mapping keyed by normalized site URL,
// which is the key the record builder joins on. Invalid domains are left out.
func Lookup(results []Result) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		if r.FaviconURL == "" {
			continue
		}
		out[r.SiteURL] = r.FaviconURL
	}
	return out
}
