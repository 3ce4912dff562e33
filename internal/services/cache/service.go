// Package cache provides an in-memory content cache for fetched pages.
// Entries expire after a configurable TTL and are purged lazily on access.
package cache

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

type entry struct {
	content  string
	storedAt time.Time
}

// Service is a TTL content cache keyed by URL. Expired entries are removed
// when they are next looked up; there is no background sweeper.
type Service struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	enabled bool
	logger  arbor.ILogger

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a new content cache service.
func NewService(cfg *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		entries: make(map[string]entry),
		ttl:     cfg.Fetch.CacheTTL,
		enabled: cfg.Fetch.CacheEnabled,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached content for a URL if present and not expired.
// Expired entries are deleted on the spot.
func (s *Service) Get(url string) (string, bool) {
	if !s.enabled {
		return "", false
	}

	s.mu.RLock()
	e, ok := s.entries[url]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	if s.now().Sub(e.storedAt) >= s.ttl {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := s.entries[url]; ok && s.now().Sub(cur.storedAt) >= s.ttl {
			delete(s.entries, url)
		}
		s.mu.Unlock()
		s.logger.Debug().Str("url", url).Msg("Cache entry expired")
		return "", false
	}

	return e.content, true
}

// Set stores content for a URL, resetting its expiry.
func (s *Service) Set(url, content string) {
	if !s.enabled {
		return
	}

	s.mu.Lock()
	s.entries[url] = entry{content: content, storedAt: s.now()}
	s.mu.Unlock()
}

// Invalidate drops a single URL from the cache.
func (s *Service) Invalidate(url string) {
	s.mu.Lock()
	delete(s.entries, url)
	s.mu.Unlock()
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been purged.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
