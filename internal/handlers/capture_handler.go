package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

// CaptureHandler serves stored page captures.
type CaptureHandler struct {
	captureStorage interfaces.CaptureStorage
	logger         arbor.ILogger
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(captureStorage interfaces.CaptureStorage, logger arbor.ILogger) *CaptureHandler {
	return &CaptureHandler{
		captureStorage: captureStorage,
		logger:         logger,
	}
}

// ListHandler handles GET /api/v1/captures. With ?url= it returns the
// single capture for that URL; otherwise the newest captures up to
// ?limit= (default 50).
func (h *CaptureHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if url := r.URL.Query().Get("url"); url != "" {
		capture, err := h.captureStorage.GetCapture(r.Context(), url)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				WriteError(w, http.StatusNotFound, "No capture for that URL")
				return
			}
			h.logger.Error().Err(err).Str("url", url).Msg("Capture lookup failed")
			WriteError(w, http.StatusInternalServerError, "Failed to get capture")
			return
		}
		WriteData(w, http.StatusOK, capture)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	captures, err := h.captureStorage.ListCaptures(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Capture listing failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}

	WriteData(w, http.StatusOK, captures)
}
