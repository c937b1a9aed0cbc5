package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTagIDs      = errors.New("one or more tags do not exist or are not yours")
	ErrNotRecurring       = errors.New("task is not recurring")
	ErrRecurrenceNotFound = errors.New("recurrence rule not found")
	ErrInvalidRecurrence  = errors.New("invalid recurrence rule")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	tagRepo  repository.TagRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, tagRepo repository.TagRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		tagRepo:  tagRepo,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
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

// RecurrenceInput represents a recurrence rule in create/update requests
type RecurrenceInput struct {
	RecurrenceType models.RecurrenceType
	IntervalValue  int
	DaysOfWeek     *string
	DayOfMonth     *int
	WeekOfMonth    *int
	MonthOfYear    *int
	EndType        models.RecurrenceEndType
	EndDate        *time.Time
	MaxOccurrences *int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	UserID           uint64
	Title            string
	Description      string
	StartDatetime    *time.Time
	DeadlineDatetime *time.Time
	Priority         models.TaskPriority
	Status           models.TaskStatus
	TagIDs           []uint64
	Recurrence       *RecurrenceInput
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	StartDatetime    *time.Time
	ClearStart       bool
	DeadlineDatetime *time.Time
	ClearDeadline    bool
	Priority         *models.TaskPriority
	Status           *models.TaskStatus
	IsArchived       *bool
	TagIDs           []uint64
	ReplaceTags      bool
}

// ListTasks returns a user's tasks matching the provided filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		UserID:    input.UserID,
		Status:    input.Status,
		Priority:  input.Priority,
		Archived:  input.Archived,
		TagID:     input.TagID,
		StartFrom: input.StartFrom,
		StartTo:   input.StartTo,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Tags", "Recurrence")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a new task with optional tags and recurrence rule
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusPlanned
	}
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	if err := s.verifyTagOwnership(input.UserID, input.TagIDs); err != nil {
		return nil, err
	}

	var rule *models.RecurrenceRule
	if input.Recurrence != nil {
		var err error
		rule, err = buildRecurrenceRule(input.Recurrence)
		if err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		UserID:           input.UserID,
		Title:            title,
		Description:      input.Description,
		StartDatetime:    input.StartDatetime,
		DeadlineDatetime: input.DeadlineDatetime,
		Priority:         priority,
		Status:           status,
		IsRecurring:      rule != nil,
	}

	if err := s.taskRepo.CreateWithRecurrence(task, rule, input.TagIDs); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.recordHistory(task.ID, input.UserID, models.HistoryActionCreated, nil, nil, nil)

	return s.GetTask(task.ID)
}

// UpdateTask applies a partial update to a task
func (s *TaskService) UpdateTask(taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.ClearStart {
		task.StartDatetime = nil
	} else if input.StartDatetime != nil {
		task.StartDatetime = input.StartDatetime
	}
	if input.ClearDeadline {
		task.DeadlineDatetime = nil
	} else if input.DeadlineDatetime != nil {
		task.DeadlineDatetime = input.DeadlineDatetime
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}

	var statusChange *models.TaskStatus
	if input.Status != nil && *input.Status != task.Status {
		if !models.ValidStatus(*input.Status) {
			return nil, ErrInvalidStatus
		}
		old := task.Status
		statusChange = &old
		task.Status = *input.Status
	}

	var archived *bool
	if input.IsArchived != nil && *input.IsArchived != task.IsArchived {
		archived = input.IsArchived
		task.IsArchived = *input.IsArchived
	}

	if input.ReplaceTags {
		if err := s.verifyTagOwnership(task.UserID, input.TagIDs); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if input.ReplaceTags {
		if err := s.taskRepo.ReplaceTags(task.ID, input.TagIDs); err != nil {
			return nil, fmt.Errorf("failed to update task tags: %w", err)
		}
	}

	if statusChange != nil {
		field := "status"
		oldValue := string(*statusChange)
		newValue := string(task.Status)
		s.recordHistory(task.ID, actorID, models.HistoryActionStatusChanged, &field, &oldValue, &newValue)
	} else {
		s.recordHistory(task.ID, actorID, models.HistoryActionUpdated, nil, nil, nil)
	}
	if archived != nil && *archived {
		s.recordHistory(task.ID, actorID, models.HistoryActionArchived, nil, nil, nil)
	}

	return s.GetTask(task.ID)
}

// DeleteTask soft deletes a task
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.recordHistory(taskID, actorID, models.HistoryActionDeleted, nil, nil, nil)
	return nil
}

// RestoreTask clears the archive and soft-delete state of a task. Only the
// owner may restore; soft-deleted tasks are invisible to shared users.
func (s *TaskService) RestoreTask(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByIDUnscoped(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.UserID != actorID {
		return nil, ErrTaskNotFound
	}

	if err := s.taskRepo.Restore(taskID); err != nil {
		return nil, fmt.Errorf("failed to restore task: %w", err)
	}

	s.recordHistory(taskID, actorID, models.HistoryActionRestored, nil, nil, nil)
	return s.GetTask(taskID)
}

// DuplicateTask creates an independent copy of a task. Tags are copied;
// recurrence is not, so the copy never spawns instances.
func (s *TaskService) DuplicateTask(taskID, actorID uint64) (*models.Task, error) {
	original, err := s.taskRepo.FindByID(taskID, "Tags")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	tagIDs := make([]uint64, 0, len(original.Tags))
	for _, tag := range original.Tags {
		tagIDs = append(tagIDs, tag.ID)
	}

	copyTask := &models.Task{
		UserID:           original.UserID,
		Title:            original.Title + " (copy)",
		Description:      original.Description,
		StartDatetime:    original.StartDatetime,
		DeadlineDatetime: original.DeadlineDatetime,
		Priority:         original.Priority,
		Status:           models.TaskStatusPlanned,
	}

	if err := s.taskRepo.CreateWithRecurrence(copyTask, nil, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to duplicate task: %w", err)
	}

	s.recordHistory(copyTask.ID, actorID, models.HistoryActionCreated, nil, nil, nil)
	return s.GetTask(copyTask.ID)
}

// GetRecurrence returns the recurrence rule of a recurring task
func (s *TaskService) GetRecurrence(taskID uint64) (*models.RecurrenceRule, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if !task.IsRecurring {
		return nil, ErrNotRecurring
	}

	rule, err := s.taskRepo.FindRecurrenceByTaskID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecurrenceNotFound
		}
		return nil, fmt.Errorf("failed to find recurrence rule: %w", err)
	}
	return rule, nil
}

// UpdateRecurrence replaces the editable fields of a task's recurrence rule.
// Generation bookkeeping (current_count, last_generated) is owned by the
// generator and left untouched.
func (s *TaskService) UpdateRecurrence(taskID, actorID uint64, input RecurrenceInput) (*models.RecurrenceRule, error) {
	rule, err := s.GetRecurrence(taskID)
	if err != nil {
		return nil, err
	}

	updated, err := buildRecurrenceRule(&input)
	if err != nil {
		return nil, err
	}

	rule.RecurrenceType = updated.RecurrenceType
	rule.IntervalValue = updated.IntervalValue
	rule.DaysOfWeek = updated.DaysOfWeek
	rule.DayOfMonth = updated.DayOfMonth
	rule.WeekOfMonth = updated.WeekOfMonth
	rule.MonthOfYear = updated.MonthOfYear
	rule.EndType = updated.EndType
	rule.EndDate = updated.EndDate
	rule.MaxOccurrences = updated.MaxOccurrences

	if err := s.taskRepo.SaveRecurrence(rule); err != nil {
		return nil, fmt.Errorf("failed to save recurrence rule: %w", err)
	}

	s.recordHistory(taskID, actorID, models.HistoryActionUpdated, nil, nil, nil)
	return rule, nil
}

// DeleteRecurrence removes a task's recurrence rule and clears its recurring
// flag. Already-generated instances are unaffected.
func (s *TaskService) DeleteRecurrence(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	if !task.IsRecurring {
		return ErrNotRecurring
	}

	if err := s.taskRepo.DeleteRecurrence(taskID); err != nil {
		return fmt.Errorf("failed to delete recurrence rule: %w", err)
	}

	task.IsRecurring = false
	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	s.recordHistory(taskID, actorID, models.HistoryActionUpdated, nil, nil, nil)
	return nil
}

// ListHistory returns a task's audit records, newest first
func (s *TaskService) ListHistory(taskID uint64) ([]models.TaskHistory, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	entries, err := s.taskRepo.ListHistory(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}
	return entries, nil
}

func (s *TaskService) verifyTagOwnership(userID uint64, tagIDs []uint64) error {
	for _, tagID := range tagIDs {
		tag, err := s.tagRepo.FindByID(tagID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidTagIDs
			}
			return fmt.Errorf("failed to verify tag %d: %w", tagID, err)
		}
		if tag.UserID != userID {
			return ErrInvalidTagIDs
		}
	}
	return nil
}

// recordHistory appends an audit entry. History is best-effort; a failure is
// logged and never fails the operation it records.
func (s *TaskService) recordHistory(taskID, userID uint64, action models.HistoryAction, field, oldValue, newValue *string) {
	entry := &models.TaskHistory{
		TaskID:    taskID,
		UserID:    userID,
		Action:    action,
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
	}
	if err := s.taskRepo.AddHistory(entry); err != nil {
		log.Printf("failed to record task %d history: %v", taskID, err)
	}
}

func buildRecurrenceRule(input *RecurrenceInput) (*models.RecurrenceRule, error) {
	if !models.ValidRecurrenceType(input.RecurrenceType) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRecurrence, input.RecurrenceType)
	}

	interval := input.IntervalValue
	if interval == 0 {
		interval = 1
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval_value must be positive", ErrInvalidRecurrence)
	}

	endType := input.EndType
	if endType == "" {
		endType = models.RecurrenceEndNever
	}
	if !models.ValidRecurrenceEndType(endType) {
		return nil, fmt.Errorf("%w: unknown end type %q", ErrInvalidRecurrence, endType)
	}
	if endType == models.RecurrenceEndDate && input.EndDate == nil {
		return nil, fmt.Errorf("%w: end_date is required for end type date", ErrInvalidRecurrence)
	}
	if endType == models.RecurrenceEndCount {
		if input.MaxOccurrences == nil || *input.MaxOccurrences <= 0 {
			return nil, fmt.Errorf("%w: max_occurrences must be positive for end type count", ErrInvalidRecurrence)
		}
	}

	return &models.RecurrenceRule{
		RecurrenceType: input.RecurrenceType,
		IntervalValue:  interval,
		DaysOfWeek:     input.DaysOfWeek,
		DayOfMonth:     input.DayOfMonth,
		WeekOfMonth:    input.WeekOfMonth,
		MonthOfYear:    input.MonthOfYear,
		EndType:        endType,
		EndDate:        input.EndDate,
		MaxOccurrences: input.MaxOccurrences,
	}, nil
}
