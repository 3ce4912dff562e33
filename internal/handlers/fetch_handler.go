package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/extract"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/fetch"
)

// FetchHandler serves the one-shot fetch endpoints, which run the fetch
// pipeline outside any scheduled task.
type FetchHandler struct {
	fetchService *fetch.Service
	logger       arbor.ILogger
}

// NewFetchHandler creates a new fetch handler.
func NewFetchHandler(fetchService *fetch.Service, logger arbor.ILogger) *FetchHandler {
	return &FetchHandler{
		fetchService: fetchService,
		logger:       logger,
	}
}

// FetchHTMLHandler handles GET /api/v1/fetch-html?url=...
func (h *FetchHandler) FetchHTMLHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		WriteError(w, http.StatusBadRequest, "Missing url parameter")
		return
	}

	html, err := h.fetchService.FetchHTML(r.Context(), url)
	if err != nil {
		h.writeFetchError(w, url, err)
		return
	}

	WriteData(w, http.StatusOK, map[string]string{
		"url":          url,
		"html_content": html,
	})
}

// FetchTextHandler handles GET /api/v1/fetch-text?url=... It returns the
// page's visible text with script and style content removed.
func (h *FetchHandler) FetchTextHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		WriteError(w, http.StatusBadRequest, "Missing url parameter")
		return
	}

	html, err := h.fetchService.FetchHTML(r.Context(), url)
	if err != nil {
		h.writeFetchError(w, url, err)
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		WriteError(w, http.StatusBadGateway, "Failed to parse fetched page")
		return
	}

	WriteData(w, http.StatusOK, map[string]string{
		"url":          url,
		"text_content": extract.Text(doc),
	})
}

func (h *FetchHandler) writeFetchError(w http.ResponseWriter, url string, err error) {
	if errors.Is(err, models.ErrValidation) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Warn().Err(err).Str("url", url).Msg("One-shot fetch failed")
	WriteError(w, http.StatusBadGateway, err.Error())
}
