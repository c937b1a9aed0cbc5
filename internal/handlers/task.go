package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plandeck/task-planner-api/internal/dto"
	apierrors "github.com/plandeck/task-planner-api/internal/errors"
	"github.com/plandeck/task-planner-api/internal/middleware"
	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/services"
	"github.com/plandeck/task-planner-api/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// recurrenceRequest is the wire form of a recurrence rule in create/update
// requests. Generation bookkeeping fields are not accepted.
type recurrenceRequest struct {
	RecurrenceType models.RecurrenceType    `json:"recurrence_type" binding:"required"`
	IntervalValue  int                      `json:"interval_value"`
	DaysOfWeek     *string                  `json:"days_of_week"`
	DayOfMonth     *int                     `json:"day_of_month"`
	WeekOfMonth    *int                     `json:"week_of_month"`
	MonthOfYear    *int                     `json:"month_of_year"`
	EndType        models.RecurrenceEndType `json:"end_type"`
	EndDate        *time.Time               `json:"end_date"`
	MaxOccurrences *int                     `json:"max_occurrences"`
}

func (r *recurrenceRequest) toInput() *services.RecurrenceInput {
	return &services.RecurrenceInput{
		RecurrenceType: r.RecurrenceType,
		IntervalValue:  r.IntervalValue,
		DaysOfWeek:     r.DaysOfWeek,
		DayOfMonth:     r.DayOfMonth,
		WeekOfMonth:    r.WeekOfMonth,
		MonthOfYear:    r.MonthOfYear,
		EndType:        r.EndType,
		EndDate:        r.EndDate,
		MaxOccurrences: r.MaxOccurrences,
	}
}

// ListTasks returns the current user's tasks, filtered and paginated.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		UserID:   userID,
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		if !models.ValidStatus(s) {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		if !models.ValidPriority(p) {
			apierrors.BadRequest(c, "Invalid priority")
			return
		}
		input.Priority = &p
	}
	if archived := c.Query("archived"); archived != "" {
		value, err := strconv.ParseBool(archived)
		if err != nil {
			apierrors.BadRequest(c, "Invalid archived flag")
			return
		}
		input.Archived = &value
	}
	if tagIDStr := c.Query("tag_id"); tagIDStr != "" {
		tagID, err := strconv.ParseUint(tagIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid tag_id")
			return
		}
		input.TagID = &tagID
	}
	if from := c.Query("start_from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			apierrors.BadRequest(c, "Invalid start_from, expected RFC 3339")
			return
		}
		input.StartFrom = &t
	}
	if to := c.Query("start_to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			apierrors.BadRequest(c, "Invalid start_to, expected RFC 3339")
			return
		}
		input.StartTo = &t
	}

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a specific task. The task is already loaded with relations
// by the RequireTaskAccess middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task))
}

// CreateTask creates a new task, optionally with tags and a recurrence rule.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title            string              `json:"title" binding:"required"`
		Description      string              `json:"description"`
		StartDatetime    *time.Time          `json:"start_datetime"`
		DeadlineDatetime *time.Time          `json:"deadline_datetime"`
		Priority         models.TaskPriority `json:"priority"`
		Status           models.TaskStatus   `json:"status"`
		TagIDs           []uint64            `json:"tag_ids"`
		Recurrence       *recurrenceRequest  `json:"recurrence"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		UserID:           userID,
		Title:            req.Title,
		Description:      req.Description,
		StartDatetime:    req.StartDatetime,
		DeadlineDatetime: req.DeadlineDatetime,
		Priority:         req.Priority,
		Status:           req.Status,
		TagIDs:           req.TagIDs,
	}
	if req.Recurrence != nil {
		input.Recurrence = req.Recurrence.toInput()
	}

	task, err := h.taskService.CreateTask(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	// Parse raw JSON so absent fields, null fields and zero values can be
	// told apart.
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput

	if title, ok := rawReq["title"].(string); ok {
		input.Title = &title
	}
	if description, ok := rawReq["description"].(string); ok {
		input.Description = &description
	}
	if raw, ok := rawReq["start_datetime"]; ok {
		if raw == nil {
			input.ClearStart = true
		} else if str, ok := raw.(string); ok {
			t, err := time.Parse(time.RFC3339, str)
			if err != nil {
				apierrors.BadRequest(c, "Invalid start_datetime, expected RFC 3339")
				return
			}
			input.StartDatetime = &t
		}
	}
	if raw, ok := rawReq["deadline_datetime"]; ok {
		if raw == nil {
			input.ClearDeadline = true
		} else if str, ok := raw.(string); ok {
			t, err := time.Parse(time.RFC3339, str)
			if err != nil {
				apierrors.BadRequest(c, "Invalid deadline_datetime, expected RFC 3339")
				return
			}
			input.DeadlineDatetime = &t
		}
	}
	if priority, ok := rawReq["priority"].(string); ok {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if status, ok := rawReq["status"].(string); ok {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if archived, ok := rawReq["is_archived"].(bool); ok {
		input.IsArchived = &archived
	}
	if raw, ok := rawReq["tag_ids"]; ok {
		ids, ok := parseIDList(raw)
		if !ok {
			apierrors.BadRequest(c, "Invalid tag_ids")
			return
		}
		input.TagIDs = ids
		input.ReplaceTags = true
	}

	updated, err := h.taskService.UpdateTask(task.ID, userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask soft deletes a task. Only the owner may delete.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if task.UserID != userID {
		apierrors.Forbidden(c, "Only the owner can delete this task")
		return
	}

	if err := h.taskService.DeleteTask(task.ID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// RestoreTask brings a soft-deleted or archived task back. Routed without the
// access middleware since soft-deleted tasks are invisible to it.
func (h *TaskHandler) RestoreTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.RestoreTask(taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DuplicateTask creates an independent copy of a task for its owner.
func (h *TaskHandler) DuplicateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if task.UserID != userID {
		apierrors.Forbidden(c, "Only the owner can duplicate this task")
		return
	}

	copyTask, err := h.taskService.DuplicateTask(task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*copyTask))
}

// GetRecurrence returns the recurrence rule of a recurring task.
func (h *TaskHandler) GetRecurrence(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	rule, err := h.taskService.GetRecurrence(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRecurrenceDTO(*rule))
}

// UpdateRecurrence replaces the editable fields of a task's recurrence rule.
func (h *TaskHandler) UpdateRecurrence(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	var req recurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	rule, err := h.taskService.UpdateRecurrence(task.ID, userID, *req.toInput())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRecurrenceDTO(*rule))
}

// DeleteRecurrence removes a task's recurrence rule.
func (h *TaskHandler) DeleteRecurrence(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if err := h.taskService.DeleteRecurrence(task.ID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recurrence rule deleted successfully",
	})
}

// ListHistory returns a task's audit trail, newest first.
func (h *TaskHandler) ListHistory(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	entries, err := h.taskService.ListHistory(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	items := make([]dto.HistoryDTO, len(entries))
	for i, entry := range entries {
		items[i] = dto.ToHistoryDTO(entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"history": items,
	})
}

func parseIDList(raw any) ([]uint64, bool) {
	values, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	ids := make([]uint64, 0, len(values))
	for _, v := range values {
		f, ok := v.(float64)
		if !ok || f < 0 || f != float64(uint64(f)) {
			return nil, false
		}
		ids = append(ids, uint64(f))
	}
	return ids, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrRecurrenceNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidTagIDs),
		errors.Is(err, services.ErrNotRecurring),
		errors.Is(err, services.ErrInvalidRecurrence):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
