// Package scheduler dispatches scheduled tasks. The dispatch loop scans
// the task store on a fixed tick, so definition updates and deletions take
// effect without any live re-registration.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/models"
)

// Service implements the SchedulerService interface.
type Service struct {
	taskStorage  interfaces.TaskStorage
	runner       interfaces.TaskRunner
	tickInterval time.Duration
	logger       arbor.ILogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sem     chan struct{}

	// task ids already warned about an unparseable schedule, so the tick
	// loop logs each orphaned task once instead of every interval
	warned map[string]struct{}
}

// NewService creates a new scheduler service.
func NewService(taskStorage interfaces.TaskStorage, runner interfaces.TaskRunner, cfg *common.Config, logger arbor.ILogger) interfaces.SchedulerService {
	tick := cfg.Scheduler.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	workers := cfg.Scheduler.MaxConcurrentRuns
	if workers < 1 {
		workers = 1
	}
	return &Service{
		taskStorage:  taskStorage,
		runner:       runner,
		tickInterval: tick,
		logger:       logger,
		sem:          make(chan struct{}, workers),
		warned:       make(map[string]struct{}),
	}
}

// Start recovers tasks stranded in running state by a previous process and
// launches the tick loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.taskStorage.RecoverInterrupted(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Interrupted-task recovery failed")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(loopCtx)

	s.logger.Info().
		Dur("tick_interval", s.tickInterval).
		Int("max_concurrent_runs", cap(s.sem)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the tick loop and waits for in-flight runs to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning reports whether the dispatch loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerNow dispatches a task immediately, bypassing its schedule. Unlike
// the tick loop, which defers a due task to a later tick when all workers
// are busy, a manual trigger waits for a worker slot: nothing would retry
// a deferred manual run. The wait is bounded by the caller's context;
// giving up reports models.ErrBusy rather than a phantom success.
func (s *Service) TriggerNow(ctx context.Context, id string) error {
	task, err := s.taskStorage.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Status == models.TaskStatusRunning {
		return fmt.Errorf("%w: task %s", models.ErrConflict, id)
	}

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: all workers busy: %v", models.ErrBusy, ctx.Err())
	}

	s.logger.Info().Str("task_id", id).Msg("Manual run triggered")
	// The run itself outlives the triggering request.
	s.launch(context.WithoutCancel(ctx), id)
	return nil
}

// HasActiveSchedules reports whether at least one stored task carries a
// parseable schedule.
func (s *Service) HasActiveSchedules(ctx context.Context) bool {
	tasks, err := s.taskStorage.ListTasks(ctx)
	if err != nil {
		return false
	}
	for _, task := range tasks {
		if ValidateSchedule(task.Schedule) == nil {
			return true
		}
	}
	return false
}

// loop ticks on a fixed interval and dispatches every due task.
func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick scans the store and dispatches every task that is due. A task is
// due when it is not currently running, its schedule parses and its next
// run time is unset or has elapsed.
func (s *Service) tick(ctx context.Context) {
	tasks, err := s.taskStorage.ListTasks(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Task scan failed, skipping tick")
		return
	}

	now := time.Now()
	for _, task := range tasks {
		if task.Status == models.TaskStatusRunning {
			continue
		}
		if err := ValidateSchedule(task.Schedule); err != nil {
			if _, done := s.warned[task.ID]; !done {
				s.warned[task.ID] = struct{}{}
				s.logger.Warn().
					Err(err).
					Str("task_id", task.ID).
					Str("schedule", task.Schedule).
					Msg("Stored schedule does not parse, task skipped until its definition is corrected")
			}
			continue
		}
		delete(s.warned, task.ID)
		if task.NextRunTime != nil && task.NextRunTime.After(now) {
			continue
		}
		s.dispatch(ctx, task.ID)
	}
}

// dispatch hands a task to the runner on a bounded worker pool. When every
// worker slot is busy the task stays due and is picked up on a later tick.
func (s *Service) dispatch(ctx context.Context, taskID string) {
	select {
	case s.sem <- struct{}{}:
	default:
		s.logger.Debug().Str("task_id", taskID).Msg("All workers busy, task deferred")
		return
	}
	s.launch(ctx, taskID)
}

// launch runs a task on an already-acquired worker slot.
func (s *Service) launch(ctx context.Context, taskID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()
		s.runner.RunTask(ctx, taskID)
	}()
}

var _ interfaces.SchedulerService = (*Service)(nil)
