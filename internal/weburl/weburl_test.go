package weburl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		scheme string
		want   string
	}{
		{name: "bare domain", raw: "example.com", want: "https://example.com"},
		{name: "bare domain with path", raw: "example.com/news", want: "https://example.com/news"},
		{name: "keeps http", raw: "http://example.com", want: "http://example.com"},
		{name: "keeps https", raw: "https://example.com/", want: "https://example.com/"},
		{name: "protocol relative", raw: "//example.com", want: "https://example.com"},
		{name: "custom scheme", raw: "example.com", scheme: "http", want: "http://example.com"},
		{name: "trims whitespace", raw: "  example.com ", want: "https://example.com"},
		{name: "empty", raw: "", want: ""},
		{name: "scheme inside query", raw: "example.com/?next=http://x", want: "https://example.com/?next=http://x"},
		{name: "scheme inside path", raw: "example.com/r/https://other.org", want: "https://example.com/r/https://other.org"},
		{name: "host with port", raw: "localhost:8080", want: "https://localhost:8080"},
		{name: "uppercase scheme", raw: "HTTP://Example.com", want: "HTTP://Example.com"},
		{name: "unparseable with scheme", raw: "http://%zz", want: "http://%zz"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EnsureScheme(tt.raw, tt.scheme))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{name: "root relative", base: "https://example.com", ref: "/static/icon.png", want: "https://example.com/static/icon.png"},
		{name: "default path", base: "https://example.com", ref: "/favicon.ico", want: "https://example.com/favicon.ico"},
		{name: "document relative", base: "https://example.com/news/", ref: "icon.png", want: "https://example.com/news/icon.png"},
		{name: "protocol relative", base: "https://example.com", ref: "//cdn.example.net/i.ico", want: "https://cdn.example.net/i.ico"},
		{name: "absolute passes through", base: "https://example.com", ref: "http://other.org/x.ico", want: "http://other.org/x.ico"},
		{name: "keeps query", base: "http://example.com", ref: "/i.ico?v=2&s=1", want: "http://example.com/i.ico?v=2&s=1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tt.base, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRejectsInvalidBase(t *testing.T) {
	t.Parallel()

	_, err := Resolve("http://%", "/favicon.ico")
	require.Error(t, err)
}

func TestIsAbsoluteHTTP(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAbsoluteHTTP("https://example.com/feed"))
	assert.True(t, IsAbsoluteHTTP("HTTP://example.com"))
	assert.False(t, IsAbsoluteHTTP("example.com"))
	assert.False(t, IsAbsoluteHTTP("ftp://example.com"))
	assert.False(t, IsAbsoluteHTTP("https://"))
	assert.False(t, IsAbsoluteHTTP(""))
}

func TestHost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", Host("https://Example.com:8443/path"))
	assert.Equal(t, "", Host("not a url"))
	assert.Equal(t, "", Host("http://%"))
}
