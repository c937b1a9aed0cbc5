package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for filtering and sorting
		{"tasks", "idx_tasks_user_status", "user_id, status"},
		{"tasks", "idx_tasks_start_datetime", "start_datetime"},
		{"tasks", "idx_tasks_deadline_datetime", "deadline_datetime"},
		// The generation pass scans on this combination every invocation
		{"tasks", "idx_tasks_recurring_active", "is_recurring, is_archived, deleted_at"},

		// Share lookups by either side of the relationship
		{"task_shares", "idx_task_shares_shared_user", "shared_user_id, removed_at"},

		// History is always read per task, newest first
		{"task_histories", "idx_task_histories_task_changed", "task_id, changed_at"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		fmt.Printf("Created index %s on %s(%s)\n", idx.name, idx.table, idx.columns)
	}

	return nil
}
