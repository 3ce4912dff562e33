package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

func newTestCache(ttl time.Duration) (*Service, *time.Time) {
	cfg := common.NewDefaultConfig()
	cfg.Fetch.CacheEnabled = true
	cfg.Fetch.CacheTTL = ttl

	svc := NewService(cfg, arbor.NewLogger())
	now := time.Now()
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestCacheHitWithinTTL(t *testing.T) {
	svc, now := newTestCache(600 * time.Second)

	svc.Set("https://example.com", "<html>cached</html>")

	*now = now.Add(599 * time.Second)
	content, ok := svc.Get("https://example.com")
	assert.True(t, ok)
	assert.Equal(t, "<html>cached</html>", content)
}

func TestCacheExpiry(t *testing.T) {
	svc, now := newTestCache(600 * time.Second)

	svc.Set("https://example.com", "stale")
	*now = now.Add(600 * time.Second)

	_, ok := svc.Get("https://example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, svc.Len(), "expired entry must be purged on access")
}

func TestCacheSetRefreshesExpiry(t *testing.T) {
	svc, now := newTestCache(600 * time.Second)

	svc.Set("https://example.com", "v1")
	*now = now.Add(500 * time.Second)
	svc.Set("https://example.com", "v2")
	*now = now.Add(500 * time.Second)

	content, ok := svc.Get("https://example.com")
	assert.True(t, ok)
	assert.Equal(t, "v2", content)
}

func TestCacheMiss(t *testing.T) {
	svc, _ := newTestCache(600 * time.Second)
	_, ok := svc.Get("https://never-stored.example.com")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	svc, _ := newTestCache(600 * time.Second)
	svc.Set("https://example.com", "content")
	svc.Invalidate("https://example.com")
	_, ok := svc.Get("https://example.com")
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Fetch.CacheEnabled = false
	svc := NewService(cfg, arbor.NewLogger())

	svc.Set("https://example.com", "content")
	_, ok := svc.Get("https://example.com")
	assert.False(t, ok)
	assert.Equal(t, 0, svc.Len())
}
