// Package fetch implements the page retrieval pipeline: cache lookup, URL
// validation, per-domain politeness limiting and a fixed-delay retry loop
// around the rendering fetcher.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/cache"
)

// Service coordinates fetching a page. The cache is consulted before any
// validation or network work; a cache hit short-circuits the pipeline.
type Service struct {
	fetcher    interfaces.Fetcher
	cache      *cache.Service
	maxRetries int
	retryDelay time.Duration
	logger     arbor.ILogger

	// per-domain politeness limiters, created on first use
	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	perSecond float64
}

// NewService creates a new fetch service.
func NewService(fetcher interfaces.Fetcher, contentCache *cache.Service, cfg *common.Config, logger arbor.ILogger) *Service {
	maxRetries := cfg.Fetch.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	perSecond := cfg.Fetch.DomainPerSecond
	if perSecond <= 0 {
		perSecond = 1.0
	}
	return &Service{
		fetcher:    fetcher,
		cache:      contentCache,
		maxRetries: maxRetries,
		retryDelay: cfg.Fetch.RetryDelay,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
		perSecond:  perSecond,
	}
}

// FetchHTML returns the rendered HTML for a URL. Invalid URLs fail
// immediately without consuming a retry attempt; transient failures are
// retried with a fixed delay between attempts and reported as
// models.ErrTransientFetch once attempts are exhausted.
func (s *Service) FetchHTML(ctx context.Context, url string) (string, error) {
	if content, ok := s.cache.Get(url); ok {
		s.logger.Debug().Str("url", url).Msg("Cache hit")
		return content, nil
	}

	if !common.IsValidURL(url) {
		return "", fmt.Errorf("%w: invalid URL %q", models.ErrValidation, url)
	}

	if err := s.waitForDomain(ctx, url); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		html, err := s.fetcher.FetchHTML(ctx, url)
		if err == nil {
			s.cache.Set(url, html)
			return html, nil
		}
		lastErr = err

		s.logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Int("max_retries", s.maxRetries).
			Msg("Fetch attempt failed")

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", models.ErrTransientFetch, ctx.Err())
			case <-time.After(s.retryDelay):
			}
		}
	}

	return "", fmt.Errorf("%w: %d attempts failed for %s: %v",
		models.ErrTransientFetch, s.maxRetries, url, lastErr)
}

// Close releases the underlying fetcher.
func (s *Service) Close() error {
	return s.fetcher.Close()
}

// waitForDomain blocks until the per-domain politeness limiter admits a
// request for the URL's host.
func (s *Service) waitForDomain(ctx context.Context, url string) error {
	domain := common.ExtractDomain(url)
	if domain == "" {
		return nil
	}

	s.limiterMu.Lock()
	limiter, ok := s.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.perSecond), 1)
		s.limiters[domain] = limiter
	}
	s.limiterMu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientFetch, err)
	}
	return nil
}

var _ interfaces.Fetcher = (*Service)(nil)
