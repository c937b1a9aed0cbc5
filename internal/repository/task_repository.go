package repository

import (
	"github.com/plandeck/task-planner-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// CreateWithRecurrence creates a task, its optional recurrence rule and its
// tag links atomically. rule and tagIDs may be nil/empty.
func (r *GormTaskRepository) CreateWithRecurrence(task *models.Task, rule *models.RecurrenceRule, tagIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}

		if rule != nil {
			rule.TaskID = task.ID
			if err := tx.Create(rule).Error; err != nil {
				return err
			}
		}

		for _, tagID := range tagIDs {
			if err := tx.Exec("INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)", task.ID, tagID).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// FindByIDUnscoped finds a task by ID including soft-deleted rows
func (r *GormTaskRepository) FindByIDUnscoped(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Unscoped().First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{}).Where("tasks.user_id = ?", filter.UserID)

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.Archived != nil {
		query = query.Where("tasks.is_archived = ?", *filter.Archived)
	}
	if filter.TagID != nil {
		tagSubQuery := r.db.Table("task_tags").
			Select("1").
			Where("task_tags.task_id = tasks.id").
			Where("task_tags.tag_id = ?", *filter.TagID)
		query = query.Where("EXISTS (?)", tagSubQuery)
	}
	if filter.StartFrom != nil {
		query = query.Where("tasks.start_datetime >= ?", *filter.StartFrom)
	}
	if filter.StartTo != nil {
		query = query.Where("tasks.start_datetime < ?", *filter.StartTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("CASE WHEN tasks.start_datetime IS NULL THEN 1 ELSE 0 END, tasks.start_datetime ASC, tasks.created_at DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Tags").Preload("Recurrence").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// Restore clears the soft-delete and archive flags of a task
func (r *GormTaskRepository) Restore(id uint64) error {
	return r.db.Unscoped().
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at":  nil,
			"is_archived": false,
		}).Error
}

// ReplaceTags replaces a task's tag set
func (r *GormTaskRepository) ReplaceTags(taskID uint64, tagIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_tags WHERE task_id = ?", taskID).Error; err != nil {
			return err
		}

		for _, tagID := range tagIDs {
			if err := tx.Exec("INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)", taskID, tagID).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// FindRecurrenceByTaskID finds the recurrence rule attached to a task
func (r *GormTaskRepository) FindRecurrenceByTaskID(taskID uint64) (*models.RecurrenceRule, error) {
	var rule models.RecurrenceRule
	if err := r.db.Where("task_id = ?", taskID).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// SaveRecurrence persists changes to a recurrence rule
func (r *GormTaskRepository) SaveRecurrence(rule *models.RecurrenceRule) error {
	return r.db.Save(rule).Error
}

// DeleteRecurrence removes a task's recurrence rule
func (r *GormTaskRepository) DeleteRecurrence(taskID uint64) error {
	return r.db.Where("task_id = ?", taskID).Delete(&models.RecurrenceRule{}).Error
}

// AddHistory appends an audit record for a task
func (r *GormTaskRepository) AddHistory(entry *models.TaskHistory) error {
	return r.db.Create(entry).Error
}

// ListHistory returns a task's audit records, newest first
func (r *GormTaskRepository) ListHistory(taskID uint64) ([]models.TaskHistory, error) {
	var entries []models.TaskHistory
	if err := r.db.Where("task_id = ?", taskID).
		Order("changed_at DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
