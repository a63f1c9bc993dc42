package types

import "time"

const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task is a class assignment tracked by the service.
// Completed and Status are always written together: Completed is true
// exactly when Status is TaskStatusCompleted.
type Task struct {
	// ID is the store-assigned identifier of the task.
	ID string `json:"_id" db:"id"`

	// Title is the non-empty name of the assignment.
	Title string `json:"title" db:"title"`

	// Course is the class the assignment belongs to, e.g. "CIS-486".
	Course string `json:"course" db:"course"`

	Completed bool   `json:"completed" db:"completed"`
	Status    string `json:"status" db:"status"`

	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedBy and UpdatedAt are empty until the first update or toggle.
	UpdatedBy string     `json:"updatedBy,omitempty" db:"updated_by"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// TaskPatch is a partial update of a task. Nil fields are left untouched.
type TaskPatch struct {
	Title     *string
	Course    *string
	UpdatedBy string
	UpdatedAt time.Time
}

// StatusFor returns the status paired with a completion flag.
func StatusFor(completed bool) string {
	if completed {
		return TaskStatusCompleted
	}
	return TaskStatusPending
}
