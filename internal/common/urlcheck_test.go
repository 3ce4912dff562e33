package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"https with path", "https://example.com/path", true},
		{"http bare host", "http://example.com", true},
		{"subdomain", "https://sub.example.co.uk", true},
		{"port", "http://example.com:8080/page", true},
		{"hyphenated label", "https://my-site.example.org", true},
		{"missing scheme", "example.com", false},
		{"unsupported scheme", "ftp://example.com", false},
		{"file scheme", "file:///etc/passwd", false},
		{"no tld", "http://localhost", false},
		{"numeric tld", "http://example.123", false},
		{"leading dot", "http://.example.com", false},
		{"trailing dot label", "http://example..com", false},
		{"label starts with hyphen", "http://-bad.example.com", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"scheme only", "https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidURL(tt.url), "url: %s", tt.url)
		})
	}
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("https://example.com/some/path?q=1"))
	assert.Equal(t, "sub.example.com", ExtractDomain("http://sub.example.com:8080"))
	assert.Equal(t, "", ExtractDomain("not a url"))
}
