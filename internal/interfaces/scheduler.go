package interfaces

import "context"

// SchedulerService owns the dispatch loop: it scans the task store for due
// tasks on a fixed tick and hands each to a worker for execution.
type SchedulerService interface {
	// Start launches the tick loop. Returns an error if already running.
	Start(ctx context.Context) error

	// Stop halts the tick loop and waits for in-flight runs to finish.
	Stop() error

	// TriggerNow dispatches a task immediately, bypassing its schedule.
	// Returns models.ErrNotFound for unknown ids and models.ErrConflict
	// while the task is running.
	TriggerNow(ctx context.Context, id string) error

	// IsRunning reports whether the dispatch loop is active.
	IsRunning() bool

	// HasActiveSchedules reports whether at least one stored task carries
	// a parseable schedule. Used by the health endpoint.
	HasActiveSchedules(ctx context.Context) bool
}

// TaskRunner executes one task end-to-end. The scheduler depends on this
// narrow interface so dispatch can be tested without a browser.
type TaskRunner interface {
	RunTask(ctx context.Context, taskID string)
}
