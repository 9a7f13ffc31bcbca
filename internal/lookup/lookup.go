// Package lookup loads the read-only tables consumed during record enrichment.
package lookup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Favicons maps a site URL (scheme included) to its absolute favicon URL.
type Favicons map[string]string

// Get returns the favicon URL for siteURL.
func (f Favicons) Get(siteURL string) (string, bool) {
	v, ok := f[siteURL]
	return v, ok
}

// CoverInfo is the cover image and background color for one site. Either may be nil.
type CoverInfo struct {
	CoverURL        *string `json:"cover_url"`
	BackgroundColor *string `json:"background_color"`
}

// CoverInfos maps a site URL to its cover information.
type CoverInfos map[string]CoverInfo

// Get returns the cover info for siteURL.
func (c CoverInfos) Get(siteURL string) (CoverInfo, bool) {
	v, ok := c[siteURL]
	return v, ok
}

// LoadFavicons reads a favicon lookup artifact.
func LoadFavicons(path string) (Favicons, error) {
	out := Favicons{}
	if err := readJSON(path, &out); err != nil {
		return Favicons{}, err
	}
	return out, nil
}

// LoadCoverInfos reads a cover info lookup artifact.
func LoadCoverInfos(path string) (CoverInfos, error) {
	out := CoverInfos{}
	if err := readJSON(path, &out); err != nil {
		return CoverInfos{}, err
	}
	return out, nil
}

// EncodeFavicons renders the favicon lookup artifact. The file is read by
// people as well as the builder, so it is indented.
func EncodeFavicons(m map[string]string) ([]byte, error) {
	data, err := encodeIndented(m)
	if err != nil {
		return nil, fmt.Errorf("encode favicon lookup: %w", err)
	}
	return data, nil
}

// EncodeCoverInfos renders the cover info lookup artifact in the same layout.
func EncodeCoverInfos(m CoverInfos) ([]byte, error) {
	data, err := encodeIndented(m)
	if err != nil {
		return nil, fmt.Errorf("encode cover info lookup: %w", err)
	}
	return data, nil
}

func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func readJSON(path string, dst any) error {
	// #nosec G304 -- lookup paths come from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read lookup %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode lookup %s: %w", path, err)
	}
	return nil
}
