package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/extract"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/fetch"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/plugin"
)

// Executor runs one scheduled task end-to-end: claim the run state, fetch,
// extract, transform, persist the capture and record the terminal state.
type Executor struct {
	taskStorage    interfaces.TaskStorage
	captureStorage interfaces.CaptureStorage
	fetchService   *fetch.Service
	extractService *extract.Service
	pluginLoader   *plugin.Loader
	capturesDir    string
	unattended     bool
	logger         arbor.ILogger
}

// NewExecutor creates a task executor.
func NewExecutor(
	taskStorage interfaces.TaskStorage,
	captureStorage interfaces.CaptureStorage,
	fetchService *fetch.Service,
	extractService *extract.Service,
	pluginLoader *plugin.Loader,
	cfg *common.Config,
	logger arbor.ILogger,
) *Executor {
	return &Executor{
		taskStorage:    taskStorage,
		captureStorage: captureStorage,
		fetchService:   fetchService,
		extractService: extractService,
		pluginLoader:   pluginLoader,
		capturesDir:    cfg.Storage.Captures,
		unattended:     cfg.Scheduler.Unattended,
		logger:         logger,
	}
}

// RunTask executes a single task run. The run state transition to running
// is claimed first; a task that is already running is left alone. Every
// outcome, success or failure, ends with a terminal status recorded in the
// store together with the recomputed next run time.
func (e *Executor) RunTask(ctx context.Context, taskID string) {
	task, err := e.taskStorage.GetTask(ctx, taskID)
	if err != nil {
		e.logger.Warn().Err(err).Str("task_id", taskID).Msg("Task vanished before dispatch")
		return
	}

	start := time.Now()
	if err := e.taskStorage.MarkRunning(ctx, taskID, start); err != nil {
		if errors.Is(err, models.ErrConflict) {
			e.logger.Debug().Str("task_id", taskID).Msg("Task already running, dispatch skipped")
			return
		}
		e.persistenceFailure(err, taskID, "Failed to claim run state")
		return
	}

	e.logger.Info().
		Str("task_id", taskID).
		Str("url", task.URL).
		Msg("Task run started")

	status, errMsg := e.execute(ctx, task)

	nextRun := e.nextRun(task.Schedule, time.Now())
	if err := e.taskStorage.CompleteRun(ctx, taskID, status, errMsg, nextRun); err != nil {
		e.persistenceFailure(err, taskID, "Failed to record run result")
		return
	}

	e.logger.Info().
		Str("task_id", taskID).
		Str("status", string(status)).
		Dur("duration", time.Since(start)).
		Msg("Task run finished")
}

// execute performs the fetch-extract-persist pipeline and returns the
// terminal status for this run.
func (e *Executor) execute(ctx context.Context, task *models.ScheduledTask) (models.TaskStatus, string) {
	if !common.IsValidURL(task.URL) {
		return models.TaskStatusFailureBadURL, fmt.Sprintf("invalid URL: %s", task.URL)
	}

	html, err := e.fetchService.FetchHTML(ctx, task.URL)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return models.TaskStatusFailureBadURL, err.Error()
		}
		return models.TaskStatusFailureFetch, err.Error()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.TaskStatusFailureFetch, fmt.Sprintf("failed to parse HTML: %v", err)
	}

	text := extract.Text(doc)
	capture := &models.CaptureRecord{
		URL:             task.URL,
		Domain:          common.ExtractDomain(task.URL),
		Title:           extract.Title(doc),
		MetaDescription: extract.MetaDescription(doc),
		Headings:        extract.H1Headings(doc),
		Keywords:        e.extractService.Keywords(text, task.Stopwords),
		TextContent:     text,
		Fields:          e.extractService.Extract(doc, task.Selectors),
		CapturedAt:      time.Now(),
	}
	if !task.TextOnly {
		capture.HTMLContent = html
		capture.Markdown = e.toMarkdown(task.URL, html)
	}

	if task.PluginPath != "" {
		capture.ProcessedContent = e.runPlugin(task, capture)
	}

	if err := e.captureStorage.UpsertCapture(ctx, capture); err != nil {
		e.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to persist capture")
		return models.TaskStatusFailureDB, err.Error()
	}

	if task.SaveFile {
		e.saveToFile(task, capture)
	}

	return models.TaskStatusSuccess, ""
}

// runPlugin loads and invokes the task's transformation plugin. A plugin
// that cannot be loaded or that fails at runtime degrades the run to
// unprocessed output; it never fails the task.
func (e *Executor) runPlugin(task *models.ScheduledTask, capture *models.CaptureRecord) (processed string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("task_id", task.ID).
				Str("plugin", task.PluginPath).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Plugin panicked, output discarded")
			processed = ""
		}
	}()

	fn, ok := e.pluginLoader.Load(task.PluginPath)
	if !ok {
		return ""
	}

	input := map[string]any{
		"url":              capture.URL,
		"title":            capture.Title,
		"meta_description": capture.MetaDescription,
		"h1_headings":      capture.Headings,
		"keywords":         capture.Keywords,
		"text_content":     capture.TextContent,
		"fields":           capture.Fields,
	}

	result, err := fn(input)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("task_id", task.ID).
			Str("plugin", task.PluginPath).
			Msg("Plugin returned an error, output discarded")
		return ""
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("task_id", task.ID).
			Str("plugin", task.PluginPath).
			Msg("Plugin output is not JSON-encodable, output discarded")
		return ""
	}
	return string(encoded)
}

// toMarkdown converts the rendered HTML to markdown. Conversion failures
// leave the markdown rendition empty without failing the run.
func (e *Executor) toMarkdown(url, html string) string {
	converter := md.NewConverter(common.ExtractDomain(url), true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		e.logger.Warn().Err(err).Str("url", url).Msg("Markdown conversion failed")
		return ""
	}
	return markdown
}

// saveToFile writes the captured content to the captures directory. The
// filename is derived from the task id; path components smuggled into it
// are stripped.
func (e *Executor) saveToFile(task *models.ScheduledTask, capture *models.CaptureRecord) {
	dir := e.capturesDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to create captures directory")
		return
	}

	content := capture.HTMLContent
	ext := ".html"
	if task.TextOnly || content == "" {
		content = capture.TextContent
		ext = ".txt"
	}

	filename := filepath.Base(task.ID) + ext
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("Failed to save capture to file")
		return
	}

	e.logger.Info().Str("task_id", task.ID).Str("path", path).Msg("Capture saved to file")
}

// nextRun computes the next run time from the task's schedule expression.
// Returns nil for unparseable expressions; those tasks stop being
// dispatched until their definition is corrected.
func (e *Executor) nextRun(expr string, now time.Time) *time.Time {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		e.logger.Warn().Err(err).Str("schedule", expr).Msg("Schedule no longer parses, task will not be re-dispatched")
		return nil
	}
	next := schedule.Next(now)
	return &next
}

// persistenceFailure handles a store failure that left the run state
// inconsistent. In unattended mode this is fatal: better to restart and
// recover than to keep scheduling against state that no longer matches
// the store.
func (e *Executor) persistenceFailure(err error, taskID, msg string) {
	if e.unattended {
		e.logger.Fatal().Err(err).Str("task_id", taskID).Msg(msg)
		return
	}
	e.logger.Error().Err(err).Str("task_id", taskID).Msg(msg)
}

var _ interfaces.TaskRunner = (*Executor)(nil)
