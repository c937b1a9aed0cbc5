package models

import "time"

type HistoryAction string

const (
	HistoryActionCreated       HistoryAction = "created"
	HistoryActionUpdated       HistoryAction = "updated"
	HistoryActionDeleted       HistoryAction = "deleted"
	HistoryActionRestored      HistoryAction = "restored"
	HistoryActionStatusChanged HistoryAction = "status_changed"
	HistoryActionArchived      HistoryAction = "archived"
)

// TaskHistory is an append-only audit record of a change to a task.
type TaskHistory struct {
	ID        uint64        `gorm:"primarykey" json:"id"`
	TaskID    uint64        `gorm:"not null;index" json:"task_id"`
	UserID    uint64        `gorm:"not null" json:"user_id"`
	Action    HistoryAction `gorm:"type:varchar(20);not null" json:"action"`
	FieldName *string       `gorm:"type:varchar(50)" json:"field_name"`
	OldValue  *string       `gorm:"type:text" json:"old_value"`
	NewValue  *string       `gorm:"type:text" json:"new_value"`
	ChangedAt time.Time     `gorm:"autoCreateTime" json:"changed_at"`
}
