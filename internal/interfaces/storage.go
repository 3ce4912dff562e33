package interfaces

import (
	"context"
	"time"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

// TaskStorage provides durable CRUD over scheduled tasks plus the atomic
// run-state operations used by the scheduler and executor. All mutating
// operations execute inside a single store transaction; on failure the
// transaction is rolled back and the operation reports failure without
// partial effect.
type TaskStorage interface {
	// CreateTask persists a new task definition. Runtime fields are reset
	// to the not-yet-run baseline (status pending).
	CreateTask(ctx context.Context, task *models.ScheduledTask) error

	// GetTask returns the task or models.ErrNotFound.
	GetTask(ctx context.Context, id string) (*models.ScheduledTask, error)

	// ListTasks returns all tasks ordered by creation time.
	ListTasks(ctx context.Context) ([]*models.ScheduledTask, error)

	// UpdateDefinition applies a partial update of definition fields only.
	// Returns models.ErrNotFound for unknown ids and models.ErrNoop when
	// the update carries no fields.
	UpdateDefinition(ctx context.Context, id string, update *models.TaskDefinitionUpdate) error

	// SetNextRun records a freshly computed next-run time without touching
	// the rest of the run state.
	SetNextRun(ctx context.Context, id string, nextRun *time.Time) error

	// DeleteTask removes a task. Returns models.ErrNotFound (a no-op
	// signal, not a persistence failure) for unknown ids.
	DeleteTask(ctx context.Context, id string) error

	// MarkRunning transitions a task to running, recording the start time.
	// Returns models.ErrConflict if the task is already running; the
	// check-and-set happens inside one transaction so concurrent dispatch
	// of the same task cannot overlap.
	MarkRunning(ctx context.Context, id string, start time.Time) error

	// CompleteRun records a terminal per-run state: status, end/last-run
	// times, error message (empty on success) and the recomputed next-run
	// time.
	CompleteRun(ctx context.Context, id string, status models.TaskStatus, errorMessage string, nextRun *time.Time) error

	// RecoverInterrupted resets tasks left in running state by a previous
	// process to pending so they become eligible for dispatch again.
	// Returns the number of tasks recovered.
	RecoverInterrupted(ctx context.Context) (int, error)
}

// CaptureStorage persists captured page content keyed uniquely by URL with
// latest-capture-wins upsert semantics.
type CaptureStorage interface {
	UpsertCapture(ctx context.Context, capture *models.CaptureRecord) error
	GetCapture(ctx context.Context, url string) (*models.CaptureRecord, error)
	ListCaptures(ctx context.Context, limit int) ([]*models.CaptureRecord, error)
	CountCaptures(ctx context.Context) (int, error)
}
