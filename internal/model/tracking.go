package model

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a submitted report.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is one submitted report-generation request.
type Task struct {
	Name        string     `json:"task_name"`
	Description string     `json:"task_description,omitempty"`
	SourceCount int        `json:"sources"`
	Status      TaskStatus `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at,omitempty"`
	ResolvedAt  time.Time  `json:"resolved_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Resolve moves a pending task to a terminal status. Terminal tasks never
// change again.
func (t *Task) Resolve(status TaskStatus, cause error) error {
	if t.Status != TaskPending {
		return fmt.Errorf("task %q is already %s", t.Name, t.Status)
	}
	switch status {
	case TaskCompleted, TaskFailed:
	default:
		return fmt.Errorf("task %q: cannot resolve to %q", t.Name, status)
	}
	t.Status = status
	t.ResolvedAt = time.Now().UTC()
	if cause != nil {
		t.Error = cause.Error()
	}
	return nil
}

// TaskSummary is one entry of GET /tasks.
type TaskSummary struct {
	TaskName    string `json:"task_name"`
	RecordCount int    `json:"record_count"`
}
