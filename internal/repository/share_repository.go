package repository

import (
	"github.com/plandeck/task-planner-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShareRepository is a GORM implementation of ShareRepository
type GormShareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new ShareRepository
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &GormShareRepository{db: db}
}

// Upsert creates a share or revives/updates an existing one for the same
// task and target user. Re-sharing a removed share clears removed_at.
func (r *GormShareRepository) Upsert(share *models.TaskShare) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "task_id"}, {Name: "shared_user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"access_level": share.AccessLevel,
				"removed_at":   gorm.Expr("NULL"),
			}),
		}).
		Create(share).Error
}

// FindActive finds a live (non-removed) share of a task with a user
func (r *GormShareRepository) FindActive(taskID, sharedUserID uint64) (*models.TaskShare, error) {
	var share models.TaskShare
	if err := r.db.
		Where("task_id = ? AND shared_user_id = ? AND removed_at IS NULL", taskID, sharedUserID).
		First(&share).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// ListSharedWithUser lists live shares granted to a user, with their tasks
func (r *GormShareRepository) ListSharedWithUser(userID uint64) ([]models.TaskShare, error) {
	var shares []models.TaskShare
	if err := r.db.
		Where("shared_user_id = ? AND removed_at IS NULL", userID).
		Preload("Task").
		Preload("Task.Tags").
		Preload("Owner").
		Order("created_at DESC").
		Find(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

// Remove soft-removes a share
func (r *GormShareRepository) Remove(shareID uint64) error {
	return r.db.Model(&models.TaskShare{}).
		Where("id = ?", shareID).
		Update("removed_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
