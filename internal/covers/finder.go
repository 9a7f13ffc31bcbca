// Package covers picks a cover image and background color for publisher
// domains from the icons and share images their homepages advertise.
package covers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/url"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/JakeFAU/publisher-directory/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/publisher-directory/internal/fetcher/colly"
	"github.com/JakeFAU/publisher-directory/internal/lookup"
	"github.com/JakeFAU/publisher-directory/internal/metrics"
	"github.com/JakeFAU/publisher-directory/internal/weburl"
)

// MaxPixels caps the decoded size of a candidate image.
const MaxPixels = 40_000_000

// Outcome labels how a domain's cover search ended.
type Outcome string

// Cover outcomes.
const (
	OutcomeFound   Outcome = "found"
	OutcomeNone    Outcome = "none"
	OutcomeFailed  Outcome = "failed"
	OutcomeInvalid Outcome = "invalid"
)

var (
	// ErrUnsupportedImage marks formats that are never decoded (svg, ico).
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrImageTooLarge marks candidates above MaxPixels.
	ErrImageTooLarge = errors.New("image too large")
	// ErrInvalidDomain marks an input that does not form an http(s) site URL.
	ErrInvalidDomain = errors.New("domain is not a valid site url")
)

// Fetcher retrieves a single resource.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (collyfetcher.Page, error)
}

// Result is the cover search outcome for one input domain. CoverURL is set
// only for OutcomeFound; BackgroundColor may still be empty then.
type Result struct {
	Domain          string
	SiteURL         string
	CoverURL        string
	BackgroundColor string
	Tier            Tier
	Outcome         Outcome
	Err             error
}

// Config controls domain normalization.
type Config struct {
	Scheme string
}

// Finder searches cover images for a batch of domains.
type Finder struct {
	fetcher Fetcher
	pool    *dispatcher.Dispatcher
	scheme  string
	logger  *zap.Logger
}

// New wires a Finder. A nil pool uses one worker per CPU.
func New(fetcher Fetcher, pool *dispatcher.Dispatcher, cfg Config, logger *zap.Logger) *Finder {
	if pool == nil {
		pool = dispatcher.New(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{fetcher: fetcher, pool: pool, scheme: cfg.Scheme, logger: logger}
}

// Find returns one Result per input domain, in input order. Failures stay
// on the affected domain.
func (f *Finder) Find(ctx context.Context, domains []string) []Result {
	f.logger.Info("finding cover images",
		zap.Int("domains", len(domains)),
		zap.Int("workers", f.pool.Workers()),
	)
	results := dispatcher.Map(ctx, f.pool, domains, f.findOne)

	counts := map[Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	f.logger.Info("cover search finished",
		zap.Int("found", counts[OutcomeFound]),
		zap.Int("none", counts[OutcomeNone]),
		zap.Int("failed", counts[OutcomeFailed]),
		zap.Int("invalid", counts[OutcomeInvalid]),
	)
	return results
}

func (f *Finder) findOne(ctx context.Context, domain string) Result {
	siteURL := weburl.EnsureScheme(domain, f.scheme)
	result := f.search(ctx, domain, siteURL)
	metrics.ObserveCoverDiscovery(string(result.Outcome))
	return result
}

func (f *Finder) search(ctx context.Context, domain, siteURL string) Result {
	result := Result{Domain: domain, SiteURL: siteURL, Outcome: OutcomeNone}
	if !weburl.IsAbsoluteHTTP(siteURL) {
		result.Outcome = OutcomeInvalid
		result.Err = ErrInvalidDomain
		f.logger.Error("invalid domain; no cover recorded", zap.String("domain", domain))
		return result
	}

	home, err := f.fetcher.Fetch(ctx, siteURL)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("fetch homepage: %w", err)
		f.logger.Info("homepage fetch failed", zap.String("domain", siteURL), zap.Error(err))
		return result
	}
	page, err := ParsePage(bytes.NewReader(home.Body))
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	for _, tier := range Tiers {
		refs := f.tierRefs(ctx, siteURL, tier, page)
		best, img, ok := f.largest(ctx, siteURL, refs)
		if !ok {
			continue
		}
		result.Outcome = OutcomeFound
		result.Tier = tier
		result.CoverURL = best
		if hex, ok := BackgroundColor(img); ok {
			result.BackgroundColor = hex
		}
		f.logger.Debug("cover image chosen",
			zap.String("domain", siteURL),
			zap.String("tier", string(tier)),
			zap.String("cover_url", best),
		)
		return result
	}
	return result
}

// tierRefs returns the absolute candidate URLs of one tier. Manifest icons
// resolve against the manifest URL, everything else against the site.
func (f *Finder) tierRefs(ctx context.Context, siteURL string, tier Tier, page Page) []string {
	switch tier {
	case TierManifest:
		if page.ManifestHref == "" {
			return nil
		}
		manifestURL, err := weburl.Resolve(siteURL, page.ManifestHref)
		if err != nil {
			return nil
		}
		resp, err := f.fetcher.Fetch(ctx, manifestURL)
		if err != nil {
			f.logger.Info("manifest fetch failed", zap.String("manifest", manifestURL), zap.Error(err))
			return nil
		}
		srcs, err := ManifestIcons(resp.Body)
		if err != nil {
			f.logger.Info("manifest unreadable", zap.String("manifest", manifestURL), zap.Error(err))
			return nil
		}
		return resolveAll(manifestURL, srcs)
	case TierIconLink:
		return resolveAll(siteURL, page.IconHrefs)
	default:
		return resolveAll(siteURL, page.MetaImages)
	}
}

// largest fetches every candidate and keeps the one whose shorter side is
// longest. Ties go to the later candidate.
func (f *Finder) largest(ctx context.Context, siteURL string, refs []string) (string, image.Image, bool) {
	var (
		bestURL  string
		bestImg  image.Image
		bestSide = -1
	)
	for _, ref := range refs {
		img, err := f.image(ctx, ref)
		if err != nil {
			f.logger.Debug("cover candidate skipped",
				zap.String("domain", siteURL),
				zap.String("image", ref),
				zap.Error(err),
			)
			continue
		}
		b := img.Bounds()
		if side := min(b.Dx(), b.Dy()); side >= bestSide {
			bestURL, bestImg, bestSide = ref, img, side
		}
	}
	return bestURL, bestImg, bestImg != nil
}

func (f *Finder) image(ctx context.Context, ref string) (image.Image, error) {
	if unsupported(ref) {
		return nil, ErrUnsupportedImage
	}
	resp, err := f.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func unsupported(ref string) bool {
	path := ref
	if u, err := url.Parse(ref); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	return strings.HasSuffix(path, ".svg") || strings.HasSuffix(path, ".ico")
}

func resolveAll(base string, refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		abs, err := weburl.Resolve(base, ref)
		if err != nil || !weburl.IsAbsoluteHTTP(abs) {
			continue
		}
		out = append(out, abs)
	}
	return out
}

// Lookup builds the cover info table keyed by normalized site URL. Domains
// without a cover are left out; a cover without a background color gets a
// null color.
func Lookup(results []Result) lookup.CoverInfos {
	out := make(lookup.CoverInfos, len(results))
	for _, r := range results {
		if r.Outcome != OutcomeFound || r.CoverURL == "" {
			continue
		}
		info := lookup.CoverInfo{CoverURL: ptr(r.CoverURL)}
		if r.BackgroundColor != "" {
			info.BackgroundColor = ptr(r.BackgroundColor)
		}
		out[r.SiteURL] = info
	}
	return out
}

func ptr(s string) *string {
	return &s
}
