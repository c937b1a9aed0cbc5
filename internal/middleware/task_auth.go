package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plandeck/task-planner-api/internal/constants"
	"github.com/plandeck/task-planner-api/internal/database"
	apierrors "github.com/plandeck/task-planner-api/internal/errors"
	"github.com/plandeck/task-planner-api/internal/models"
)

const contextKeyTaskAccess = "task_access"

// RequireTaskAccess checks if the user can see a task: either they own it or
// it has been shared with them. Missing access is reported as 404 to avoid
// leaking task existence.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var task models.Task
		if err := database.GetDB().
			Preload("Tags").
			Preload("Recurrence").
			First(&task, taskID).Error; err != nil {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		access := models.ShareAccessEdit
		if task.UserID != userID {
			var share models.TaskShare
			err := database.GetDB().
				Where("task_id = ? AND shared_user_id = ? AND removed_at IS NULL", taskID, userID).
				First(&share).Error
			if err != nil {
				apierrors.NotFound(c, "Task not found")
				c.Abort()
				return
			}
			access = share.AccessLevel
		}

		c.Set(constants.ContextKeyTask, task)
		c.Set(contextKeyTaskAccess, access)
		c.Next()
	}
}

// RequireTaskEditAccess rejects users who only hold view access to the task.
// Must run after RequireTaskAccess.
func RequireTaskEditAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		access, exists := GetTaskAccess(c)
		if !exists || access != models.ShareAccessEdit {
			apierrors.Forbidden(c, "You do not have edit access to this task")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess from context
func GetTask(c *gin.Context) (models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := value.(models.Task)
	return task, ok
}

// GetTaskAccess retrieves the caller's access level for the context task
func GetTaskAccess(c *gin.Context) (models.ShareAccessLevel, bool) {
	value, exists := c.Get(contextKeyTaskAccess)
	if !exists {
		return "", false
	}
	access, ok := value.(models.ShareAccessLevel)
	return access, ok
}
