package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/cache"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/scheduler"
)

// TaskHandler serves the scheduled-task CRUD and run-now API.
type TaskHandler struct {
	taskStorage  interfaces.TaskStorage
	scheduler    interfaces.SchedulerService
	contentCache *cache.Service
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskStorage interfaces.TaskStorage, schedulerService interfaces.SchedulerService, contentCache *cache.Service, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{
		taskStorage:  taskStorage,
		scheduler:    schedulerService,
		contentCache: contentCache,
		validate:     validator.New(),
		logger:       logger,
	}
}

// createTaskRequest is the payload for task creation. Runtime fields are
// not representable here; clients cannot seed status or run times.
type createTaskRequest struct {
	URL        string                         `json:"url" validate:"required"`
	Schedule   string                         `json:"schedule_time" validate:"required"`
	TextOnly   bool                           `json:"text_only"`
	Stopwords  string                         `json:"stopwords"`
	Selectors  map[string]models.SelectorSpec `json:"css_selectors"`
	SaveFile   bool                           `json:"save_file"`
	PluginPath string                         `json:"processing_function_path"`
}

// CreateHandler handles POST /api/v1/scheduled-tasks.
func (h *TaskHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req createTaskRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteErrors(w, http.StatusBadRequest, validationErrors(err))
		return
	}
	if !common.IsValidURL(req.URL) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid URL: %s", req.URL))
		return
	}
	if err := scheduler.ValidateSchedule(req.Schedule); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := &models.ScheduledTask{
		ID:         common.NewTaskID(),
		URL:        req.URL,
		Schedule:   req.Schedule,
		TextOnly:   req.TextOnly,
		Stopwords:  req.Stopwords,
		Selectors:  req.Selectors,
		SaveFile:   req.SaveFile,
		PluginPath: req.PluginPath,
	}

	// The first run is scheduled one full interval out, matching the
	// behavior of re-scheduling after a completed run.
	spec, _ := scheduler.ParseSchedule(req.Schedule)
	next := spec.Next(time.Now())
	task.NextRunTime = &next

	if err := h.taskStorage.CreateTask(r.Context(), task); err != nil {
		if errors.Is(err, models.ErrValidation) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Task creation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	WriteData(w, http.StatusCreated, task)
}

// ListHandler handles GET /api/v1/scheduled-tasks.
func (h *TaskHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tasks, err := h.taskStorage.ListTasks(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Task listing failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	WriteData(w, http.StatusOK, tasks)
}

// GetHandler handles GET /api/v1/scheduled-tasks/{id}.
func (h *TaskHandler) GetHandler(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.taskStorage.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Task %s not found", id))
			return
		}
		h.logger.Error().Err(err).Str("task_id", id).Msg("Task lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to get task")
		return
	}

	WriteData(w, http.StatusOK, task)
}

// UpdateHandler handles PUT /api/v1/scheduled-tasks/{id}. The payload is a
// partial definition update; unknown fields, including runtime fields like
// status, are rejected outright.
func (h *TaskHandler) UpdateHandler(w http.ResponseWriter, r *http.Request, id string) {
	var update models.TaskDefinitionUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&update); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if update.URL != nil && !common.IsValidURL(*update.URL) {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid URL: %s", *update.URL))
		return
	}
	if update.Schedule != nil {
		if err := scheduler.ValidateSchedule(*update.Schedule); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	err := h.taskStorage.UpdateDefinition(r.Context(), id, &update)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNoop):
		WriteMessage(w, http.StatusOK, "No fields to update")
		return
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Task %s not found", id))
		return
	default:
		h.logger.Error().Err(err).Str("task_id", id).Msg("Task update failed")
		WriteError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	// A redefined URL must not be served from a capture of whatever was
	// cached under it before; the next run fetches fresh.
	if update.URL != nil {
		h.contentCache.Invalidate(*update.URL)
	}

	// A changed schedule resets the next run time; the store scan picks
	// the new time up on its next tick.
	if update.Schedule != nil {
		spec, _ := scheduler.ParseSchedule(*update.Schedule)
		next := spec.Next(time.Now())
		if err := h.taskStorage.SetNextRun(r.Context(), id, &next); err != nil {
			h.logger.Warn().Err(err).Str("task_id", id).Msg("Failed to reset next run time")
		}
	}

	task, err := h.taskStorage.GetTask(r.Context(), id)
	if err != nil {
		WriteMessage(w, http.StatusOK, "Task updated")
		return
	}
	WriteData(w, http.StatusOK, task)
}

// DeleteHandler handles DELETE /api/v1/scheduled-tasks/{id}. Deletion also
// drops the task's URL from the content cache.
func (h *TaskHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.taskStorage.GetTask(r.Context(), id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		h.logger.Error().Err(err).Str("task_id", id).Msg("Task lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	err = h.taskStorage.DeleteTask(r.Context(), id)
	switch {
	case err == nil:
		if task != nil {
			h.contentCache.Invalidate(task.URL)
		}
		WriteMessage(w, http.StatusOK, fmt.Sprintf("Task %s deleted", id))
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Task %s not found", id))
	default:
		h.logger.Error().Err(err).Str("task_id", id).Msg("Task deletion failed")
		WriteError(w, http.StatusInternalServerError, "Failed to delete task")
	}
}

// taskStatusView is the run-state projection served by the status
// endpoints: definition fields stripped, run fields only.
type taskStatusView struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Status       string     `json:"status"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	LastRunTime  *time.Time `json:"last_run_time,omitempty"`
	NextRunTime  *time.Time `json:"next_run_time,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func statusView(task *models.ScheduledTask) taskStatusView {
	return taskStatusView{
		ID:           task.ID,
		URL:          task.URL,
		Status:       string(task.Status),
		StartTime:    task.StartTime,
		EndTime:      task.EndTime,
		LastRunTime:  task.LastRunTime,
		NextRunTime:  task.NextRunTime,
		ErrorMessage: task.ErrorMessage,
	}
}

// StatusListHandler handles GET /api/v1/scheduled-tasks/status.
func (h *TaskHandler) StatusListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tasks, err := h.taskStorage.ListTasks(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Task listing failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list task statuses")
		return
	}

	views := make([]taskStatusView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, statusView(task))
	}
	WriteData(w, http.StatusOK, views)
}

// StatusHandler handles GET /api/v1/scheduled-tasks/{id}/status.
func (h *TaskHandler) StatusHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	task, err := h.taskStorage.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Task %s not found", id))
			return
		}
		h.logger.Error().Err(err).Str("task_id", id).Msg("Task lookup failed")
		WriteError(w, http.StatusInternalServerError, "Failed to get task status")
		return
	}

	WriteData(w, http.StatusOK, statusView(task))
}

// RunNowHandler handles POST /api/v1/scheduled-tasks/{id}/run. A task that
// is already running answers 409; the run state is never stacked.
func (h *TaskHandler) RunNowHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	err := h.scheduler.TriggerNow(r.Context(), id)
	switch {
	case err == nil:
		WriteMessage(w, http.StatusAccepted, fmt.Sprintf("Task %s started", id))
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Task %s not found", id))
	case errors.Is(err, models.ErrConflict):
		WriteError(w, http.StatusConflict, fmt.Sprintf("Task %s is already running", id))
	case errors.Is(err, models.ErrBusy):
		WriteError(w, http.StatusServiceUnavailable, "All workers are busy, try again shortly")
	default:
		h.logger.Error().Err(err).Str("task_id", id).Msg("Manual trigger failed")
		WriteError(w, http.StatusInternalServerError, "Failed to trigger task")
	}
}

// validationErrors flattens validator output to per-field messages.
func validationErrors(err error) []string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		msgs = append(msgs, fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()))
	}
	return msgs
}
