package models

import "time"

type ShareAccessLevel string

const (
	ShareAccessView ShareAccessLevel = "view"
	ShareAccessEdit ShareAccessLevel = "edit"
)

// ValidShareAccessLevel reports whether a is one of the known access levels.
func ValidShareAccessLevel(a ShareAccessLevel) bool {
	return a == ShareAccessView || a == ShareAccessEdit
}

// TaskShare grants another user access to a single task. Removal is soft
// (RemovedAt) so a re-share of the same task revives the existing row.
type TaskShare struct {
	ID           uint64           `gorm:"primarykey" json:"id"`
	TaskID       uint64           `gorm:"not null;uniqueIndex:idx_task_shares_task_user" json:"task_id"`
	OwnerUserID  uint64           `gorm:"not null;index" json:"owner_user_id"`
	SharedUserID uint64           `gorm:"not null;uniqueIndex:idx_task_shares_task_user" json:"shared_user_id"`
	AccessLevel  ShareAccessLevel `gorm:"type:varchar(10);not null" json:"access_level"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	RemovedAt    *time.Time       `json:"-"`

	// Relations
	Task       Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Owner      User `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	SharedUser User `gorm:"foreignKey:SharedUserID" json:"shared_user,omitempty"`
}
