package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	badgerstore "github.com/kruemmel-python/WebCrawler-Pro/internal/storage/badger"
)

// StatusHandler serves version and health endpoints.
type StatusHandler struct {
	db        *badgerstore.BadgerDB
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(db *badgerstore.BadgerDB, schedulerService interfaces.SchedulerService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		db:        db,
		scheduler: schedulerService,
		logger:    logger,
	}
}

// VersionHandler handles GET /api/v1/version.
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteData(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}

// HealthHandler handles GET /api/v1/health. The service is healthy when
// the store answers and at least one task carries an active schedule;
// reachable-but-idle reports as degraded rather than unhealthy.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if err := h.db.Ping(); err != nil {
		h.logger.Error().Err(err).Msg("Health check: store unreachable")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	status := "healthy"
	schedules := "active"
	if !h.scheduler.HasActiveSchedules(r.Context()) {
		status = "degraded"
		schedules = "none"
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"database":  "ok",
		"scheduler": map[string]any{"running": h.scheduler.IsRunning(), "schedules": schedules},
	})
}

// NotFoundHandler answers unmatched API routes with a JSON 404.
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}
