// Package weburl holds the URL helpers shared by favicon discovery and the
// publisher record parser.
package weburl

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultScheme is prepended to bare domains.
const DefaultScheme = "https"

// EnsureScheme returns raw unchanged when it already carries a scheme and
// otherwise prefixes it with scheme (DefaultScheme when empty).
// Protocol-relative input ("//host") only gains the scheme.
func EnsureScheme(raw, scheme string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if scheme == "" {
		scheme = DefaultScheme
	}
	if hasScheme(raw) {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return scheme + ":" + raw
	}
	return scheme + "://" + raw
}

// hasScheme reports whether raw starts with "scheme://". A "://" later in
// the string, such as inside a query, does not count.
func hasScheme(raw string) bool {
	scheme := ""
	if u, err := url.Parse(raw); err == nil {
		scheme = u.Scheme
	} else if before, _, ok := strings.Cut(raw, "://"); ok && validScheme(before) {
		scheme = before
	}
	return scheme != "" && strings.HasPrefix(raw[len(scheme):], "://")
}

// validScheme applies the RFC 3986 scheme grammar.
func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// Resolve resolves ref against base using RFC 3986 reference resolution.
// Absolute refs pass through unchanged.
func Resolve(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// IsAbsoluteHTTP reports whether raw parses as an http or https URL with a host.
func IsAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Host returns the lowercase hostname of raw, or "" when it has none.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
