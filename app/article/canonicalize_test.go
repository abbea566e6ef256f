package article

import (
	"errors"
	"testing"
)

func TestCanonicalizeStripsTrackingParams(t *testing.T) {
	got, domain, err := Canonicalize("http://a.com/x?utm=1", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "http://a.com/x" {
		t.Errorf("Expected 'http://a.com/x', got: %s", got)
	}
	if domain != "a.com" {
		t.Errorf("Expected domain 'a.com', got: %s", domain)
	}

	plain, _, err := Canonicalize("http://a.com/x", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if plain != got {
		t.Errorf("Tracked and untracked URL should canonicalize identically: %s vs %s", got, plain)
	}
}

func TestCanonicalizeUtmPrefix(t *testing.T) {
	got, _, err := Canonicalize("https://news.example.com/story?utm_source=rss&utm_medium=feed&id=42", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "https://news.example.com/story?id=42" {
		t.Errorf("Expected utm_* params stripped, got: %s", got)
	}
}

func TestCanonicalizeStripsFragment(t *testing.T) {
	got, _, err := Canonicalize("https://example.com/article#section-2", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "https://example.com/article" {
		t.Errorf("Expected fragment stripped, got: %s", got)
	}
}

func TestCanonicalizeLowercasesHost(t *testing.T) {
	got, domain, err := Canonicalize("https://Example.COM/Article", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "https://example.com/Article" {
		t.Errorf("Expected host lowercased with path preserved, got: %s", got)
	}
	if domain != "example.com" {
		t.Errorf("Expected domain 'example.com', got: %s", domain)
	}
}

func TestCanonicalizeResolvesRelative(t *testing.T) {
	got, domain, err := Canonicalize("/2024/06/story.html", "https://news.example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "https://news.example.com/2024/06/story.html" {
		t.Errorf("Expected relative link resolved against base, got: %s", got)
	}
	if domain != "news.example.com" {
		t.Errorf("Expected domain 'news.example.com', got: %s", domain)
	}
}

func TestCanonicalizeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		base string
	}{
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"relative without base", "/story", ""},
		{"unsupported scheme", "ftp://example.com/file", ""},
		{"no host", "http:///path-only", ""},
		{"malformed", "http://exa mple.com/%zz", ""},
	}

	for _, tc := range cases {
		_, _, err := Canonicalize(tc.raw, tc.base)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("%s: expected ErrInvalidURL, got: %v", tc.name, err)
		}
	}
}

func TestCanonicalizeKeepsMeaningfulQuery(t *testing.T) {
	got, _, err := Canonicalize("https://example.com/watch?v=abc123&utm_campaign=x", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "https://example.com/watch?v=abc123" {
		t.Errorf("Expected non-tracking query preserved, got: %s", got)
	}
}
