package dto

import (
	"time"

	"github.com/plandeck/task-planner-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// RecurrenceDTO represents a recurrence rule in API responses
type RecurrenceDTO struct {
	ID             uint64                   `json:"id"`
	RecurrenceType models.RecurrenceType    `json:"recurrence_type"`
	IntervalValue  int                      `json:"interval_value"`
	DaysOfWeek     *string                  `json:"days_of_week,omitempty"`
	DayOfMonth     *int                     `json:"day_of_month,omitempty"`
	WeekOfMonth    *int                     `json:"week_of_month,omitempty"`
	MonthOfYear    *int                     `json:"month_of_year,omitempty"`
	EndType        models.RecurrenceEndType `json:"end_type"`
	EndDate        *time.Time               `json:"end_date,omitempty"`
	MaxOccurrences *int                     `json:"max_occurrences,omitempty"`
	CurrentCount   int                      `json:"current_count"`
	LastGenerated  *time.Time               `json:"last_generated,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID               uint64              `json:"id"`
	UserID           uint64              `json:"user_id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	StartDatetime    *time.Time          `json:"start_datetime"`
	DeadlineDatetime *time.Time          `json:"deadline_datetime"`
	Priority         models.TaskPriority `json:"priority"`
	Status           models.TaskStatus   `json:"status"`
	IsRecurring      bool                `json:"is_recurring"`
	IsArchived       bool                `json:"is_archived"`
	ParentTaskID     *uint64             `json:"parent_task_id,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Tags             []TagDTO            `json:"tags,omitempty"`
	Recurrence       *RecurrenceDTO      `json:"recurrence,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// SharedTaskDTO represents a task shared with the current user
type SharedTaskDTO struct {
	ShareID     uint64                  `json:"share_id"`
	AccessLevel models.ShareAccessLevel `json:"access_level"`
	SharedAt    time.Time               `json:"shared_at"`
	Owner       *UserDTO                `json:"owner,omitempty"`
	Task        TaskDTO                 `json:"task"`
}

// HistoryDTO represents a task history entry in API responses
type HistoryDTO struct {
	ID        uint64               `json:"id"`
	Action    models.HistoryAction `json:"action"`
	FieldName *string              `json:"field_name,omitempty"`
	OldValue  *string              `json:"old_value,omitempty"`
	NewValue  *string              `json:"new_value,omitempty"`
	ChangedAt time.Time            `json:"changed_at"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
	}
}

// ToRecurrenceDTO converts a RecurrenceRule model to RecurrenceDTO
func ToRecurrenceDTO(rule models.RecurrenceRule) RecurrenceDTO {
	return RecurrenceDTO{
		ID:             rule.ID,
		RecurrenceType: rule.RecurrenceType,
		IntervalValue:  rule.IntervalValue,
		DaysOfWeek:     rule.DaysOfWeek,
		DayOfMonth:     rule.DayOfMonth,
		WeekOfMonth:    rule.WeekOfMonth,
		MonthOfYear:    rule.MonthOfYear,
		EndType:        rule.EndType,
		EndDate:        rule.EndDate,
		MaxOccurrences: rule.MaxOccurrences,
		CurrentCount:   rule.CurrentCount,
		LastGenerated:  rule.LastGenerated,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:               task.ID,
		UserID:           task.UserID,
		Title:            task.Title,
		Description:      task.Description,
		StartDatetime:    task.StartDatetime,
		DeadlineDatetime: task.DeadlineDatetime,
		Priority:         task.Priority,
		Status:           task.Status,
		IsRecurring:      task.IsRecurring,
		IsArchived:       task.IsArchived,
		ParentTaskID:     task.ParentTaskID,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}

	if len(task.Tags) > 0 {
		dto.Tags = make([]TagDTO, len(task.Tags))
		for i, tag := range task.Tags {
			dto.Tags[i] = ToTagDTO(tag)
		}
	}

	if task.Recurrence != nil {
		recurrence := ToRecurrenceDTO(*task.Recurrence)
		dto.Recurrence = &recurrence
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}

// ToSharedTaskDTO converts a TaskShare model to SharedTaskDTO
func ToSharedTaskDTO(share models.TaskShare) SharedTaskDTO {
	dto := SharedTaskDTO{
		ShareID:     share.ID,
		AccessLevel: share.AccessLevel,
		SharedAt:    share.CreatedAt,
		Task:        ToTaskDTO(share.Task),
	}

	if share.Owner.ID != 0 {
		owner := ToUserDTO(share.Owner)
		dto.Owner = &owner
	}

	return dto
}

// ToHistoryDTO converts a TaskHistory model to HistoryDTO
func ToHistoryDTO(entry models.TaskHistory) HistoryDTO {
	return HistoryDTO{
		ID:        entry.ID,
		Action:    entry.Action,
		FieldName: entry.FieldName,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		ChangedAt: entry.ChangedAt,
	}
}
