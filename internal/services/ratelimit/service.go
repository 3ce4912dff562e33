// Package ratelimit enforces a sliding-window request quota per API
// credential.
package ratelimit

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

// window is the span over which requests are counted.
const window = time.Minute

// Service tracks request timestamps per credential and admits a request
// only while fewer than the configured ceiling fall inside the trailing
// one-minute window. Timestamps older than the window are pruned before
// every decision, so a credential that pauses long enough regains its
// full quota.
type Service struct {
	mu      sync.Mutex
	history map[string][]time.Time
	limit   int
	enabled bool
	logger  arbor.ILogger

	now func() time.Time
}

// NewService creates a new rate limit service.
func NewService(cfg *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		history: make(map[string][]time.Time),
		limit:   cfg.RateLimit.RequestsPerMinute,
		enabled: cfg.RateLimit.Enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether the credential may make a request now. Admitted
// requests are recorded against the window; denied requests are not.
func (s *Service) Allow(credential string) bool {
	if !s.enabled {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	recent := s.history[credential][:0]
	for _, t := range s.history[credential] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= s.limit {
		s.history[credential] = recent
		s.logger.Warn().
			Str("credential", credential).
			Int("requests_in_window", len(recent)).
			Int("limit", s.limit).
			Msg("Rate limit exceeded")
		return false
	}

	s.history[credential] = append(recent, now)
	return true
}

// Remaining returns how many requests the credential has left in the
// current window.
func (s *Service) Remaining(credential string) int {
	if !s.enabled {
		return s.limit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	count := 0
	for _, t := range s.history[credential] {
		if t.After(cutoff) {
			count++
		}
	}
	if count >= s.limit {
		return 0
	}
	return s.limit - count
}
