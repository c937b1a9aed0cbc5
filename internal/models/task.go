package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

type TaskStatus string

const (
	TaskStatusPlanned    TaskStatus = "planned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusSkipped    TaskStatus = "skipped"
	TaskStatusCanceled   TaskStatus = "canceled"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPlanned, TaskStatusInProgress, TaskStatusDone, TaskStatusSkipped, TaskStatusCanceled:
		return true
	}
	return false
}

// Task is either a standalone task, a generated instance (ParentTaskID set),
// or a recurring template (IsRecurring true) that anchors a RecurrenceRule.
type Task struct {
	ID               uint64         `gorm:"primarykey" json:"id"`
	UserID           uint64         `gorm:"not null;index" json:"user_id"`
	Title            string         `gorm:"not null" json:"title"`
	Description      string         `gorm:"type:text" json:"description"`
	StartDatetime    *time.Time     `json:"start_datetime"`
	DeadlineDatetime *time.Time     `json:"deadline_datetime"`
	Priority         TaskPriority   `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status           TaskStatus     `gorm:"type:varchar(20);not null;default:'planned'" json:"status"`
	IsRecurring      bool           `gorm:"not null;default:false" json:"is_recurring"`
	IsArchived       bool           `gorm:"not null;default:false" json:"is_archived"`
	ParentTaskID     *uint64        `gorm:"index" json:"parent_task_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User       User            `gorm:"foreignKey:UserID" json:"-"`
	Tags       []Tag           `gorm:"many2many:task_tags" json:"tags,omitempty"`
	Recurrence *RecurrenceRule `gorm:"foreignKey:TaskID" json:"recurrence,omitempty"`
	Instances  []Task          `gorm:"foreignKey:ParentTaskID" json:"-"`
}
