package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the run state of a scheduled task. It records the
// outcome of the most recent run, not schedule eligibility: any non-running
// task is eligible for re-dispatch once its next run time elapses.
type TaskStatus string

const (
	TaskStatusPending         TaskStatus = "pending"
	TaskStatusRunning         TaskStatus = "running"
	TaskStatusSuccess         TaskStatus = "success"
	TaskStatusFailureBadURL   TaskStatus = "failure-invalid-url"
	TaskStatusFailureFetch    TaskStatus = "failure-fetch-error"
	TaskStatusFailureDB       TaskStatus = "failure-db-error"
)

// IsTerminal returns true for per-run terminal states.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusFailureBadURL, TaskStatusFailureFetch, TaskStatusFailureDB:
		return true
	}
	return false
}

// SelectorSpec describes how a single named field is extracted from a page.
// In JSON it accepts either a bare selector string or the structured form
// {"selector": "...", "type": "integer", "cleanup": ["lower"]}.
type SelectorSpec struct {
	Selector string   `json:"selector"`
	Type     string   `json:"type,omitempty"`    // "string" (default), "integer", "float"
	Cleanup  []string `json:"cleanup,omitempty"` // supported: "lower"
}

// UnmarshalJSON accepts the raw-string shorthand for a selector spec.
func (s *SelectorSpec) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		s.Selector = raw
		s.Type = ""
		s.Cleanup = nil
		return nil
	}

	type alias SelectorSpec
	var full alias
	if err := json.Unmarshal(data, &full); err != nil {
		return fmt.Errorf("selector spec must be a string or an object: %w", err)
	}
	*s = SelectorSpec(full)
	return nil
}

// ScheduledTask is the durable definition of a periodic fetch-and-extract
// job plus its run state. Definition fields are caller-writable; runtime
// fields are mutated only by the executor and scheduler through the task
// store's run-state operations.
type ScheduledTask struct {
	// Identity. Generated at creation, immutable.
	ID string `json:"id" badgerhold:"key"`

	// Definition fields.
	URL        string                  `json:"url"`
	Schedule   string                  `json:"schedule_time"`
	TextOnly   bool                    `json:"text_only"`
	Stopwords  string                  `json:"stopwords,omitempty"` // comma-separated custom stop words
	Selectors  map[string]SelectorSpec `json:"css_selectors,omitempty"`
	SaveFile   bool                    `json:"save_file"`
	PluginPath string                  `json:"processing_function_path,omitempty"`

	// Runtime fields.
	Status       TaskStatus `json:"status" badgerhold:"index"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	LastRunTime  *time.Time `json:"last_run_time,omitempty"`
	NextRunTime  *time.Time `json:"next_run_time,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskDefinitionUpdate is a partial update of a task's definition fields.
// Nil pointers leave the corresponding field untouched. Runtime fields are
// deliberately not representable here; the API layer rejects them before a
// payload ever reaches the store.
type TaskDefinitionUpdate struct {
	URL        *string                  `json:"url,omitempty"`
	Schedule   *string                  `json:"schedule_time,omitempty"`
	TextOnly   *bool                    `json:"text_only,omitempty"`
	Stopwords  *string                  `json:"stopwords,omitempty"`
	Selectors  *map[string]SelectorSpec `json:"css_selectors,omitempty"`
	SaveFile   *bool                    `json:"save_file,omitempty"`
	PluginPath *string                  `json:"processing_function_path,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u *TaskDefinitionUpdate) Empty() bool {
	return u.URL == nil && u.Schedule == nil && u.TextOnly == nil &&
		u.Stopwords == nil && u.Selectors == nil && u.SaveFile == nil &&
		u.PluginPath == nil
}
