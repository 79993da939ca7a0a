package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the lifecycle of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority enumerates task urgency levels.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var (
	// ErrInvalidStatus indicates an unknown task status value.
	ErrInvalidStatus = errors.New("tasks: invalid status")
	// ErrInvalidPriority indicates an unknown task priority value.
	ErrInvalidPriority = errors.New("tasks: invalid priority")
)

// ParseStatus validates raw input and returns a Status.
func ParseStatus(rawInput string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusInProgress):
		return StatusInProgress, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
}

// String returns the underlying status value.
func (s Status) String() string {
	return string(s)
}

// ParsePriority validates raw input and returns a Priority.
func ParsePriority(rawInput string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(PriorityLow):
		return PriorityLow, nil
	case string(PriorityMedium):
		return PriorityMedium, nil
	case string(PriorityHigh):
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, rawInput)
	}
}

// String returns the underlying priority value.
func (p Priority) String() string {
	return string(p)
}

// Task is one to-do item on a student's checklist, optionally tied to a
// college application. CompletedAtSeconds is zero until the task completes
// and clears again if the task reopens.
type Task struct {
	TaskID               string `gorm:"column:task_id;primaryKey;size:190;not null"`
	StudentID            string `gorm:"column:student_id;size:190;not null;index"`
	Title                string `gorm:"column:title;size:320;not null"`
	Description          string `gorm:"column:description;type:text"`
	DueDateSeconds       int64  `gorm:"column:due_date_s;not null;default:0"`
	Status               string `gorm:"column:status;size:32;not null;default:pending"`
	Priority             string `gorm:"column:priority;size:32;not null;default:medium"`
	Category             string `gorm:"column:category;size:190"`
	RelatedApplicationID string `gorm:"column:related_application_id;size:190;index"`
	CreatedAtSeconds     int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds     int64  `gorm:"column:updated_at_s;not null"`
	CompletedAtSeconds   int64  `gorm:"column:completed_at_s;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (Task) TableName() string {
	return "tasks"
}
