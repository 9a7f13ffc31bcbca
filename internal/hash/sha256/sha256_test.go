// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import "testing"

// TestHasherHashDeterministic ensures repeated hashing yields the same digest.
func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got := h.Hash("hello world")
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if again := h.Hash("hello world"); again != got {
		t.Fatalf("expected deterministic hash, got %s vs %s", got, again)
	}
}

// TestHasherHashDistinguishesInputs guards against accidental collisions between feeds.
func TestHasherHashDistinguishesInputs(t *testing.T) {
	t.Parallel()

	h := New()
	if h.Hash("https://a.com/feed") == h.Hash("https://a.com/feed/") {
		t.Fatal("expected different digests for different feed URLs")
	}
}
