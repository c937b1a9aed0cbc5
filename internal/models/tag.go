package models

import "time"

type Tag struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"user_id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_tags_user_name" json:"name"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#808080'" json:"color"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Tasks []Task `gorm:"many2many:task_tags" json:"-"`
}
