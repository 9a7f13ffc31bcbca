package favicon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/publisher-directory/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/publisher-directory/internal/fetcher/colly"
	"github.com/JakeFAU/publisher-directory/internal/weburl"
)

func TestDiscoverExtractsAndResolvesHref(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.html("https://example.com", `<html><head><link rel="shortcut icon" href="/static/icon.png"></head></html>`)

	d := New(fetcher, dispatcher.New(2), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), []string{"example.com"})

	require.Len(t, results, 1)
	assert.Equal(t, "example.com", results[0].Domain)
	assert.Equal(t, "https://example.com", results[0].SiteURL)
	assert.Equal(t, "https://example.com/static/icon.png", results[0].FaviconURL)
	assert.Equal(t, OutcomeFound, results[0].Outcome)
	assert.NoError(t, results[0].Err)
}

func TestDiscoverFallsBackOnFetchError(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.fail("https://example.com", errors.New("connection refused"))

	d := New(fetcher, dispatcher.New(1), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), []string{"example.com"})

	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/favicon.ico", results[0].FaviconURL)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)

	var fetchErr *FetchError
	require.ErrorAs(t, results[0].Err, &fetchErr)
	assert.Equal(t, "https://example.com", fetchErr.Domain)
}

func TestDiscoverDefaultPathCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "no link", body: `<html><head><title>x</title></head></html>`},
		{name: "empty href", body: `<html><head><link rel="shortcut icon" href=""></head></html>`},
		{name: "missing href", body: `<html><head><link rel="shortcut icon"></head></html>`},
		{name: "only plain icon rel", body: `<html><head><link rel="icon" href="/other.png"></head></html>`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fetcher := newFakeFetcher()
			fetcher.html("https://example.com", tt.body)
			d := New(fetcher, dispatcher.New(1), Config{}, zap.NewNop())

			results := d.Discover(context.Background(), []string{"example.com"})
			require.Len(t, results, 1)
			assert.Equal(t, "https://example.com/favicon.ico", results[0].FaviconURL)
			assert.Equal(t, OutcomeDefault, results[0].Outcome)
		})
	}
}

func TestDiscoverRejectsNonHTML(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.pages["https://example.com"] = collyfetcher.Page{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"link":"<link rel=\"shortcut icon\" href=\"/x.png\">"}`),
	}

	d := New(fetcher, nil, Config{}, nil)
	results := d.Discover(context.Background(), []string{"example.com"})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.ErrorIs(t, results[0].Err, ErrNotHTML)
	assert.Equal(t, "https://example.com/favicon.ico", results[0].FaviconURL)
}

func TestDiscoverKeepsSchemeWhenPresent(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.html("http://example.jp", `<link rel="shortcut icon" href="//cdn.example.jp/f.ico">`)

	d := New(fetcher, dispatcher.New(1), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), []string{"http://example.jp"})

	require.Len(t, results, 1)
	assert.Equal(t, "http://example.jp", results[0].SiteURL)
	assert.Equal(t, "http://cdn.example.jp/f.ico", results[0].FaviconURL)
}

func TestDiscoverAbsoluteHrefPassesThrough(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.html("https://example.com", `<link rel="Shortcut Icon" href="https://static.example.net/icon.ico">`)

	d := New(fetcher, dispatcher.New(1), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), []string{"example.com"})

	require.Len(t, results, 1)
	assert.Equal(t, "https://static.example.net/icon.ico", results[0].FaviconURL)
}

func TestDiscoverIsTotalOverInput(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	domains := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		domain := fmt.Sprintf("site%d.example", i)
		domains = append(domains, domain)
		switch i % 3 {
		case 0:
			fetcher.html("https://"+domain, `<link rel="shortcut icon" href="img/i.png">`)
		case 1:
			fetcher.fail("https://"+domain, errors.New("timeout"))
		default:
			fetcher.html("https://"+domain, `<p>no icon</p>`)
		}
	}

	d := New(fetcher, dispatcher.New(4), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), domains)

	require.Len(t, results, len(domains))
	for i, r := range results {
		assert.Equal(t, domains[i], r.Domain)
		assert.True(t, weburl.IsAbsoluteHTTP(r.FaviconURL), "not absolute: %s", r.FaviconURL)
	}
	assert.Equal(t, "https://site0.example/img/i.png", results[0].FaviconURL)
	assert.Len(t, Lookup(results), len(domains))
}

func TestDiscoverSkipsInvalidDomains(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.html("https://good.example", `<link rel="shortcut icon" href="/g.png">`)

	d := New(fetcher, dispatcher.New(2), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), []string{"exa mple.com", "http://%zz", "good.example"})

	require.Len(t, results, 3)
	for _, r := range results[:2] {
		assert.Equal(t, OutcomeInvalid, r.Outcome, r.Domain)
		assert.Empty(t, r.FaviconURL, r.Domain)
		assert.ErrorIs(t, r.Err, ErrInvalidDomain)
	}
	assert.Equal(t, OutcomeFound, results[2].Outcome)
	assert.Equal(t, map[string]string{"https://good.example": "https://good.example/g.png"}, Lookup(results))
}

func TestDiscoverThroughCollyFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.UserAgent() != "browser-test" {
			http.Error(w, "bots not welcome", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><link rel="shortcut icon" href="/assets/fav.png"></head></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	fetcher := collyfetcher.New(collyfetcher.Config{UserAgent: "browser-test", Timeout: 2 * time.Second})
	d := New(fetcher, dispatcher.New(2), Config{}, zap.NewNop())
	results := d.Discover(context.Background(), []string{srv.URL, down.URL})

	require.Len(t, results, 2)
	assert.Equal(t, srv.URL+"/assets/fav.png", results[0].FaviconURL)
	assert.Equal(t, OutcomeFound, results[0].Outcome)
	assert.Equal(t, down.URL+"/favicon.ico", results[1].FaviconURL)
	assert.Equal(t, OutcomeFailed, results[1].Outcome)
}

func TestExtractShortcutIconUsesFirstMatch(t *testing.T) {
	t.Parallel()

	href, err := ExtractShortcutIcon(strings.NewReader(`
		<link rel="stylesheet" href="/s.css">
		<link rel="shortcut  icon" href=" /first.ico ">
		<link rel="shortcut icon" href="/second.ico">`))
	require.NoError(t, err)
	assert.Equal(t, "/first.ico", href)
}

func TestLookupKeysBySiteURL(t *testing.T) {
	t.Parallel()

	got := Lookup([]Result{
		{Domain: "a.com", SiteURL: "https://a.com", FaviconURL: "https://a.com/favicon.ico"},
		{Domain: "http://b.com", SiteURL: "http://b.com", FaviconURL: "http://b.com/b.png"},
	})
	assert.Equal(t, map[string]string{
		"https://a.com": "https://a.com/favicon.ico",
		"http://b.com":  "http://b.com/b.png",
	}, got)
}

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]collyfetcher.Page
	errors map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:  map[string]collyfetcher.Page{},
		errors: map[string]error{},
	}
}

func (f *fakeFetcher) html(url, body string) {
	f.pages[url] = collyfetcher.Page{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func (f *fakeFetcher) fail(url string, err error) {
	f.errors[url] = err
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (collyfetcher.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errors[url]; ok {
		return collyfetcher.Page{}, err
	}
	page, ok := f.pages[url]
	if !ok {
		return collyfetcher.Page{}, fmt.Errorf("no page for %s", url)
	}
	return page, nil
}
