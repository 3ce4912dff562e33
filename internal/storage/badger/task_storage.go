package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

// txnRetries bounds how often a serialization conflict between concurrent
// run-state transactions is retried before reporting failure.
const txnRetries = 3

// TaskStorage implements the TaskStorage interface on Badger. Every
// mutation runs inside a single badger transaction, which also serializes
// run-state updates for the same task.
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTaskStorage creates a new TaskStorage instance.
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TaskStorage {
	return &TaskStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TaskStorage) CreateTask(ctx context.Context, task *models.ScheduledTask) error {
	if task.ID == "" {
		return fmt.Errorf("%w: task ID is required", models.ErrValidation)
	}

	now := time.Now()
	task.Status = models.TaskStatusPending
	task.StartTime = nil
	task.EndTime = nil
	task.LastRunTime = nil
	task.ErrorMessage = ""
	task.CreatedAt = now
	task.UpdatedAt = now

	err := s.update(func(tx *badgerdb.Txn) error {
		return s.db.Store().TxInsert(tx, task.ID, task)
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("%w: task %s already exists", models.ErrValidation, task.ID)
		}
		return fmt.Errorf("%w: failed to create task %s: %v", models.ErrPersistence, task.ID, err)
	}

	s.logger.Info().Str("task_id", task.ID).Str("url", task.URL).Msg("Scheduled task created")
	return nil
}

func (s *TaskStorage) GetTask(ctx context.Context, id string) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	if err := s.db.Store().Get(id, &task); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to get task %s: %v", models.ErrPersistence, id, err)
	}
	return &task, nil
}

func (s *TaskStorage) ListTasks(ctx context.Context) ([]*models.ScheduledTask, error) {
	var tasks []models.ScheduledTask
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt")
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("%w: failed to list tasks: %v", models.ErrPersistence, err)
	}

	result := make([]*models.ScheduledTask, len(tasks))
	for i := range tasks {
		result[i] = &tasks[i]
	}
	return result, nil
}

func (s *TaskStorage) UpdateDefinition(ctx context.Context, id string, update *models.TaskDefinitionUpdate) error {
	if update == nil || update.Empty() {
		return models.ErrNoop
	}

	err := s.update(func(tx *badgerdb.Txn) error {
		var task models.ScheduledTask
		if err := s.db.Store().TxGet(tx, id, &task); err != nil {
			return err
		}

		if update.URL != nil {
			task.URL = *update.URL
		}
		if update.Schedule != nil {
			task.Schedule = *update.Schedule
		}
		if update.TextOnly != nil {
			task.TextOnly = *update.TextOnly
		}
		if update.Stopwords != nil {
			task.Stopwords = *update.Stopwords
		}
		if update.Selectors != nil {
			task.Selectors = *update.Selectors
		}
		if update.SaveFile != nil {
			task.SaveFile = *update.SaveFile
		}
		if update.PluginPath != nil {
			task.PluginPath = *update.PluginPath
		}
		task.UpdatedAt = time.Now()

		return s.db.Store().TxUpdate(tx, id, &task)
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: failed to update task %s: %v", models.ErrPersistence, id, err)
	}

	s.logger.Info().Str("task_id", id).Msg("Task definition updated")
	return nil
}

func (s *TaskStorage) SetNextRun(ctx context.Context, id string, nextRun *time.Time) error {
	err := s.update(func(tx *badgerdb.Txn) error {
		var task models.ScheduledTask
		if err := s.db.Store().TxGet(tx, id, &task); err != nil {
			return err
		}
		task.NextRunTime = nextRun
		task.UpdatedAt = time.Now()
		return s.db.Store().TxUpdate(tx, id, &task)
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: failed to set next run for task %s: %v", models.ErrPersistence, id, err)
	}
	return nil
}

func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	err := s.update(func(tx *badgerdb.Txn) error {
		return s.db.Store().TxDelete(tx, id, models.ScheduledTask{})
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: failed to delete task %s: %v", models.ErrPersistence, id, err)
	}

	s.logger.Info().Str("task_id", id).Msg("Scheduled task deleted")
	return nil
}

func (s *TaskStorage) MarkRunning(ctx context.Context, id string, start time.Time) error {
	err := s.update(func(tx *badgerdb.Txn) error {
		var task models.ScheduledTask
		if err := s.db.Store().TxGet(tx, id, &task); err != nil {
			return err
		}
		if task.Status == models.TaskStatusRunning {
			return models.ErrConflict
		}

		task.Status = models.TaskStatusRunning
		task.StartTime = &start
		task.EndTime = nil
		task.ErrorMessage = ""
		task.UpdatedAt = time.Now()

		return s.db.Store().TxUpdate(tx, id, &task)
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return fmt.Errorf("%w: task %s", models.ErrConflict, id)
		}
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: failed to mark task %s running: %v", models.ErrPersistence, id, err)
	}
	return nil
}

func (s *TaskStorage) CompleteRun(ctx context.Context, id string, status models.TaskStatus, errorMessage string, nextRun *time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal run state", models.ErrValidation, status)
	}

	err := s.update(func(tx *badgerdb.Txn) error {
		var task models.ScheduledTask
		if err := s.db.Store().TxGet(tx, id, &task); err != nil {
			return err
		}

		now := time.Now()
		task.Status = status
		task.EndTime = &now
		task.LastRunTime = &now
		task.NextRunTime = nextRun
		task.ErrorMessage = errorMessage
		task.UpdatedAt = now

		return s.db.Store().TxUpdate(tx, id, &task)
	})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: failed to record run result for task %s: %v", models.ErrPersistence, id, err)
	}

	s.logger.Info().
		Str("task_id", id).
		Str("status", string(status)).
		Msg("Task run state recorded")
	return nil
}

func (s *TaskStorage) RecoverInterrupted(ctx context.Context) (int, error) {
	var stuck []models.ScheduledTask
	if err := s.db.Store().Find(&stuck, badgerhold.Where("Status").Eq(models.TaskStatusRunning)); err != nil {
		return 0, fmt.Errorf("%w: failed to query running tasks: %v", models.ErrPersistence, err)
	}

	recovered := 0
	for i := range stuck {
		task := stuck[i]
		err := s.update(func(tx *badgerdb.Txn) error {
			var t models.ScheduledTask
			if err := s.db.Store().TxGet(tx, task.ID, &t); err != nil {
				return err
			}
			if t.Status != models.TaskStatusRunning {
				return nil
			}
			t.Status = models.TaskStatusPending
			t.ErrorMessage = "run interrupted by service restart"
			t.UpdatedAt = time.Now()
			return s.db.Store().TxUpdate(tx, task.ID, &t)
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to recover interrupted task")
			continue
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Info().Int("count", recovered).Msg("Recovered tasks interrupted by previous run")
	}
	return recovered, nil
}

// update runs fn inside a badger read-write transaction, retrying a small
// number of times when concurrent transactions conflict on commit.
func (s *TaskStorage) update(fn func(tx *badgerdb.Txn) error) error {
	var err error
	for attempt := 0; attempt < txnRetries; attempt++ {
		err = s.db.Store().Badger().Update(fn)
		if !errors.Is(err, badgerdb.ErrConflict) {
			return err
		}
		s.logger.Debug().Int("attempt", attempt+1).Msg("Transaction conflict, retrying")
	}
	return err
}
