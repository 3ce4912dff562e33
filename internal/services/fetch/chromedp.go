package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
)

// BrowserFetcher renders pages through a headless Chrome instance so that
// JavaScript-generated content is present in the returned HTML. A single
// allocator is shared; each fetch gets its own browser tab context.
type BrowserFetcher struct {
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	navTimeout      time.Duration
	renderWait      time.Duration
	logger          arbor.ILogger
}

// NewBrowserFetcher starts the shared Chrome allocator.
func NewBrowserFetcher(cfg *common.Config, logger arbor.ILogger) *BrowserFetcher {
	browser := cfg.Fetch.Browser

	userAgent := browser.UserAgent
	if userAgent == "" {
		userAgent = "WebCrawler-Pro/1.0"
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", browser.Headless),
		chromedp.Flag("disable-gpu", browser.DisableGPU),
		chromedp.Flag("no-sandbox", browser.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Info().
		Bool("headless", browser.Headless).
		Str("user_agent", userAgent).
		Dur("render_wait", browser.RenderWait).
		Msg("Browser fetcher initialized")

	return &BrowserFetcher{
		allocatorCtx:    allocatorCtx,
		allocatorCancel: allocatorCancel,
		navTimeout:      browser.NavigationTimeout,
		renderWait:      browser.RenderWait,
		logger:          logger,
	}
}

// FetchHTML navigates to the URL, waits for scripts to settle and returns
// the rendered document HTML.
func (f *BrowserFetcher) FetchHTML(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.allocatorCtx)
	defer tabCancel()

	timeout := f.navTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, runCancel := context.WithTimeout(tabCtx, timeout)
	defer runCancel()

	// Honor caller cancellation on top of the navigation timeout.
	go func() {
		select {
		case <-ctx.Done():
			runCancel()
		case <-runCtx.Done():
		}
	}()

	start := time.Now()
	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(f.renderWait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}

	f.logger.Debug().
		Str("url", url).
		Int("html_bytes", len(html)).
		Dur("duration", time.Since(start)).
		Msg("Page rendered")

	return html, nil
}

// Close shuts down the shared browser allocator.
func (f *BrowserFetcher) Close() error {
	f.allocatorCancel()
	return nil
}

var _ interfaces.Fetcher = (*BrowserFetcher)(nil)
