package repository

import (
	"time"

	"github.com/plandeck/task-planner-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// CreateWithRecurrence creates a task, its recurrence rule and its tag
	// links within a single transaction
	CreateWithRecurrence(task *models.Task, rule *models.RecurrenceRule, tagIDs []uint64) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// FindByIDUnscoped finds a task by ID including soft-deleted rows
	FindByIDUnscoped(id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id uint64) error

	// Restore clears the soft-delete and archive flags of a task
	Restore(id uint64) error

	// ReplaceTags replaces a task's tag set
	ReplaceTags(taskID uint64, tagIDs []uint64) error

	// FindRecurrenceByTaskID finds the recurrence rule attached to a task
	FindRecurrenceByTaskID(taskID uint64) (*models.RecurrenceRule, error)

	// SaveRecurrence persists changes to a recurrence rule
	SaveRecurrence(rule *models.RecurrenceRule) error

	// DeleteRecurrence removes a task's recurrence rule
	DeleteRecurrence(taskID uint64) error

	// AddHistory appends an audit record for a task
	AddHistory(entry *models.TaskHistory) error

	// ListHistory returns a task's audit records, newest first
	ListHistory(taskID uint64) ([]models.TaskHistory, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	UserID    uint64
	Status    *models.TaskStatus
	Priority  *models.TaskPriority
	Archived  *bool
	TagID     *uint64
	StartFrom *time.Time
	StartTo   *time.Time
	Page      int
	PageSize  int
}

// RecurringTemplate pairs a recurring template task with its rule.
type RecurringTemplate struct {
	Task models.Task
	Rule models.RecurrenceRule
}

// RecurrenceRepository is the storage interface consumed by the instance
// generator. It only ever inserts new task rows and advances rule
// bookkeeping; template fields are never mutated through it.
type RecurrenceRepository interface {
	// ListActiveTemplates returns every recurring, non-deleted, non-archived
	// template joined with its recurrence rule
	ListActiveTemplates() ([]RecurringTemplate, error)

	// ListTagIDsForTask returns the IDs of the tags linked to a task
	ListTagIDsForTask(taskID uint64) ([]uint64, error)

	// InsertInstance creates a new generated task row
	InsertInstance(task *models.Task) error

	// LinkTag links a single tag to a task
	LinkTag(taskID, tagID uint64) error

	// UpdateProgress advances a rule's bookkeeping. The update is conditional
	// on the stored current_count still being newCount-1 and returns
	// ErrStaleRule when another writer got there first.
	UpdateProgress(ruleID uint64, newCount int, lastGenerated time.Time) error
}

// TagRepository defines the interface for tag data access
type TagRepository interface {
	// Create creates a new tag
	Create(tag *models.Tag) error

	// FindByID finds a tag by ID
	FindByID(id uint64) (*models.Tag, error)

	// FindByName finds a user's tag by name
	FindByName(userID uint64, name string) (*models.Tag, error)

	// ListByUser lists all tags owned by a user
	ListByUser(userID uint64) ([]models.Tag, error)

	// Update updates a tag
	Update(tag *models.Tag) error

	// Delete deletes a tag and its task links
	Delete(id uint64) error
}

// ShareRepository defines the interface for task share data access
type ShareRepository interface {
	// Upsert creates a share or revives/updates an existing one for the same
	// task and target user
	Upsert(share *models.TaskShare) error

	// FindActive finds a live (non-removed) share of a task with a user
	FindActive(taskID, sharedUserID uint64) (*models.TaskShare, error)

	// ListSharedWithUser lists live shares granted to a user, with tasks
	ListSharedWithUser(userID uint64) ([]models.TaskShare, error)

	// Remove soft-removes a share
	Remove(shareID uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email (case-insensitive)
	FindByEmail(email string) (*models.User, error)
}
