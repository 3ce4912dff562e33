package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

func newTestTaskStorage(t *testing.T) interfaces.TaskStorage {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewTaskStorage(db, arbor.NewLogger())
}

func newTask(id string) *models.ScheduledTask {
	return &models.ScheduledTask{
		ID:       id,
		URL:      "https://example.com",
		Schedule: "hourly",
	}
}

func TestTaskCRUD(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	task := newTask("task_1")
	if err := storage.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("new task status = %q, want pending", task.Status)
	}

	got, err := storage.GetTask(ctx, "task_1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.URL != "https://example.com" || got.Schedule != "hourly" {
		t.Errorf("stored task does not match: %+v", got)
	}

	tasks, err := storage.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("ListTasks returned %d tasks, want 1", len(tasks))
	}

	if err := storage.DeleteTask(ctx, "task_1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := storage.GetTask(ctx, "task_1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetTask after delete = %v, want ErrNotFound", err)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	storage := newTestTaskStorage(t)

	_, err := storage.GetTask(context.Background(), "task_missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	storage := newTestTaskStorage(t)

	err := storage.DeleteTask(context.Background(), "task_missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if errors.Is(err, models.ErrPersistence) {
		t.Error("missing id must not classify as a persistence failure")
	}
}

func TestCreateTaskResetsRuntimeFields(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	now := time.Now()
	task := newTask("task_1")
	task.Status = models.TaskStatusSuccess
	task.StartTime = &now
	task.ErrorMessage = "stale"

	if err := storage.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, _ := storage.GetTask(ctx, "task_1")
	if got.Status != models.TaskStatusPending || got.StartTime != nil || got.ErrorMessage != "" {
		t.Errorf("runtime fields not reset: %+v", got)
	}
}

func TestUpdateDefinition(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	if err := storage.CreateTask(ctx, newTask("task_1")); err != nil {
		t.Fatal(err)
	}

	newURL := "https://other.example.org"
	textOnly := true
	err := storage.UpdateDefinition(ctx, "task_1", &models.TaskDefinitionUpdate{
		URL:      &newURL,
		TextOnly: &textOnly,
	})
	if err != nil {
		t.Fatalf("UpdateDefinition failed: %v", err)
	}

	got, _ := storage.GetTask(ctx, "task_1")
	if got.URL != newURL || !got.TextOnly {
		t.Errorf("update not applied: %+v", got)
	}
	if got.Schedule != "hourly" {
		t.Errorf("untouched field changed: schedule = %q", got.Schedule)
	}
}

func TestUpdateDefinitionNoop(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	if err := storage.CreateTask(ctx, newTask("task_1")); err != nil {
		t.Fatal(err)
	}

	err := storage.UpdateDefinition(ctx, "task_1", &models.TaskDefinitionUpdate{})
	if !errors.Is(err, models.ErrNoop) {
		t.Errorf("empty update err = %v, want ErrNoop", err)
	}
}

func TestUpdateDefinitionNotFound(t *testing.T) {
	storage := newTestTaskStorage(t)

	url := "https://example.com"
	err := storage.UpdateDefinition(context.Background(), "task_missing", &models.TaskDefinitionUpdate{URL: &url})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkRunningConflict(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	if err := storage.CreateTask(ctx, newTask("task_1")); err != nil {
		t.Fatal(err)
	}

	if err := storage.MarkRunning(ctx, "task_1", time.Now()); err != nil {
		t.Fatalf("first MarkRunning failed: %v", err)
	}

	err := storage.MarkRunning(ctx, "task_1", time.Now())
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("second MarkRunning err = %v, want ErrConflict", err)
	}
}

func TestCompleteRun(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	if err := storage.CreateTask(ctx, newTask("task_1")); err != nil {
		t.Fatal(err)
	}
	if err := storage.MarkRunning(ctx, "task_1", time.Now()); err != nil {
		t.Fatal(err)
	}

	next := time.Now().Add(time.Hour)
	if err := storage.CompleteRun(ctx, "task_1", models.TaskStatusFailureFetch, "3 attempts failed", &next); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	got, _ := storage.GetTask(ctx, "task_1")
	if got.Status != models.TaskStatusFailureFetch {
		t.Errorf("status = %q, want failure-fetch-error", got.Status)
	}
	if got.ErrorMessage != "3 attempts failed" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	if got.EndTime == nil || got.LastRunTime == nil || got.NextRunTime == nil {
		t.Errorf("run timestamps not recorded: %+v", got)
	}

	// After completion the task can run again.
	if err := storage.MarkRunning(ctx, "task_1", time.Now()); err != nil {
		t.Errorf("MarkRunning after completion failed: %v", err)
	}
}

func TestCompleteRunRejectsNonTerminalStatus(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	if err := storage.CreateTask(ctx, newTask("task_1")); err != nil {
		t.Fatal(err)
	}

	err := storage.CompleteRun(ctx, "task_1", models.TaskStatusRunning, "", nil)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestRecoverInterrupted(t *testing.T) {
	storage := newTestTaskStorage(t)
	ctx := context.Background()

	for _, id := range []string{"task_1", "task_2", "task_3"} {
		if err := storage.CreateTask(ctx, newTask(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := storage.MarkRunning(ctx, "task_1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := storage.MarkRunning(ctx, "task_2", time.Now()); err != nil {
		t.Fatal(err)
	}

	recovered, err := storage.RecoverInterrupted(ctx)
	if err != nil {
		t.Fatalf("RecoverInterrupted failed: %v", err)
	}
	if recovered != 2 {
		t.Errorf("recovered = %d, want 2", recovered)
	}

	for _, id := range []string{"task_1", "task_2"} {
		got, _ := storage.GetTask(ctx, id)
		if got.Status != models.TaskStatusPending {
			t.Errorf("task %s status = %q, want pending", id, got.Status)
		}
	}
	got, _ := storage.GetTask(ctx, "task_3")
	if got.Status != models.TaskStatusPending {
		t.Errorf("untouched task status changed: %q", got.Status)
	}
}
