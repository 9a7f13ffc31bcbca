package covers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Tier is one preference level of cover image candidates.
type Tier string

// Candidate tiers in preference order.
const (
	TierManifest  Tier = "manifest"
	TierIconLink  Tier = "icon_link"
	TierMetaImage Tier = "meta_image"
)

// Tiers lists the candidate tiers in the order they are tried.
var Tiers = []Tier{TierManifest, TierIconLink, TierMetaImage}

// Page holds the candidate references read from one homepage. Values are
// raw attribute text and still need resolving against the site URL.
type Page struct {
	ManifestHref string
	IconHrefs    []string
	MetaImages   []string
}

// ParsePage extracts the manifest link, the apple-touch-icon and icon links
// and the og:image, twitter:image and image metas. Each group keeps
// document order with the first-named kind first.
func ParsePage(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	var page Page
	if href, ok := doc.Find(`link[rel="manifest"]`).First().Attr("href"); ok {
		page.ManifestHref = strings.TrimSpace(href)
	}
	for _, sel := range []string{`link[rel="apple-touch-icon"]`, `link[rel="icon"]`} {
		page.IconHrefs = append(page.IconHrefs, attrs(doc, sel, "href")...)
	}
	for _, sel := range []string{`meta[property="og:image"]`, `meta[property="twitter:image"]`, `meta[property="image"]`} {
		page.MetaImages = append(page.MetaImages, attrs(doc, sel, "content")...)
	}
	return page, nil
}

func attrs(doc *goquery.Document, selector, name string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}

type manifest struct {
	Icons []struct {
		Src *string `json:"src"`
	} `json:"icons"`
}

// ManifestIcons returns the src of every icon in a web app manifest.
// Icons without a src are skipped.
func ManifestIcons(data []byte) ([]string, error) {
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	out := make([]string, 0, len(m.Icons))
	for _, icon := range m.Icons {
		if icon.Src == nil || strings.TrimSpace(*icon.Src) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(*icon.Src))
	}
	return out, nil
}
