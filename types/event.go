package types

import "time"

// Task lifecycle event types.
const (
	EventTaskCreated  = "task.created"
	EventTaskUpdated  = "task.updated"
	EventTaskDeleted  = "task.deleted"
	EventTaskToggled  = "task.toggled"
	EventTasksSeeded  = "tasks.seeded"
	EventTasksCleaned = "tasks.cleaned"
)

// TaskEvent describes a change to the tasks collection.
type TaskEvent struct {
	Type  string    `json:"type"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`

	// TaskID is empty for collection-wide events.
	TaskID string `json:"taskId,omitempty"`

	// Completed is set for task.toggled.
	Completed *bool `json:"completed,omitempty"`

	// Count is the number of affected tasks for collection-wide events.
	Count int64 `json:"count,omitempty"`
}
