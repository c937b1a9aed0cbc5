package repository

import (
	"errors"
	"time"

	"github.com/plandeck/task-planner-api/internal/models"
	"gorm.io/gorm"
)

// ErrStaleRule is returned by UpdateProgress when the rule's current_count
// no longer matches the value the caller evaluated against. A concurrent
// pass advanced the rule first; the caller must not advance it again.
var ErrStaleRule = errors.New("recurrence repository: rule progress is stale")

// GormRecurrenceRepository is a GORM implementation of RecurrenceRepository
type GormRecurrenceRepository struct {
	db *gorm.DB
}

// NewRecurrenceRepository creates a new RecurrenceRepository
func NewRecurrenceRepository(db *gorm.DB) RecurrenceRepository {
	return &GormRecurrenceRepository{db: db}
}

// ListActiveTemplates returns every recurring, non-deleted, non-archived
// template joined with its recurrence rule. Templates without a rule row are
// not returned; they cannot be stepped.
func (r *GormRecurrenceRepository) ListActiveTemplates() ([]RecurringTemplate, error) {
	var tasks []models.Task
	err := r.db.
		Joins("JOIN recurrence_rules ON recurrence_rules.task_id = tasks.id").
		Where("tasks.is_recurring = ? AND tasks.is_archived = ?", true, false).
		Preload("Recurrence").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	templates := make([]RecurringTemplate, 0, len(tasks))
	for _, task := range tasks {
		if task.Recurrence == nil {
			continue
		}
		templates = append(templates, RecurringTemplate{
			Task: task,
			Rule: *task.Recurrence,
		})
	}

	return templates, nil
}

// ListTagIDsForTask returns the IDs of the tags linked to a task
func (r *GormRecurrenceRepository) ListTagIDsForTask(taskID uint64) ([]uint64, error) {
	var tagIDs []uint64
	if err := r.db.Table("task_tags").
		Where("task_id = ?", taskID).
		Pluck("tag_id", &tagIDs).Error; err != nil {
		return nil, err
	}
	return tagIDs, nil
}

// InsertInstance creates a new generated task row
func (r *GormRecurrenceRepository) InsertInstance(task *models.Task) error {
	return r.db.Create(task).Error
}

// LinkTag links a single tag to a task
func (r *GormRecurrenceRepository) LinkTag(taskID, tagID uint64) error {
	return r.db.Exec("INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID).Error
}

// UpdateProgress advances a rule's bookkeeping, conditionally on the stored
// current_count still being newCount-1 so two overlapping passes cannot both
// advance the same rule.
func (r *GormRecurrenceRepository) UpdateProgress(ruleID uint64, newCount int, lastGenerated time.Time) error {
	result := r.db.Model(&models.RecurrenceRule{}).
		Where("id = ? AND current_count = ?", ruleID, newCount-1).
		Updates(map[string]interface{}{
			"current_count":  newCount,
			"last_generated": lastGenerated,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleRule
	}
	return nil
}
