package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plandeck/task-planner-api/internal/dto"
	apierrors "github.com/plandeck/task-planner-api/internal/errors"
	"github.com/plandeck/task-planner-api/internal/middleware"
	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/services"
)

// ShareHandler coordinates task-sharing HTTP handlers.
type ShareHandler struct {
	shareService *services.ShareService
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
	}
}

// ShareTask grants another user access to a task by email.
func (h *ShareHandler) ShareTask(c *gin.Context) {
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

	type ShareRequest struct {
		Email       string                  `json:"email" binding:"required,email"`
		AccessLevel models.ShareAccessLevel `json:"access_level"`
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	accessLevel := req.AccessLevel
	if accessLevel == "" {
		accessLevel = models.ShareAccessView
	}

	share, err := h.shareService.ShareTask(services.ShareTaskInput{
		TaskID:      taskID,
		OwnerID:     userID,
		TargetEmail: req.Email,
		AccessLevel: accessLevel,
	})
	if err != nil {
		respondShareError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"share_id":     share.ID,
		"task_id":      share.TaskID,
		"access_level": share.AccessLevel,
	})
}

// ListSharedWithMe returns tasks other users have shared with the caller.
func (h *ShareHandler) ListSharedWithMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	shares, err := h.shareService.ListSharedWithUser(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch shared tasks")
		return
	}

	items := make([]dto.SharedTaskDTO, len(shares))
	for i, share := range shares {
		items[i] = dto.ToSharedTaskDTO(share)
	}

	c.JSON(http.StatusOK, gin.H{
		"shared_tasks": items,
	})
}

// Unshare removes a user's access to a task. The owner may remove any share;
// a recipient may remove their own.
func (h *ShareHandler) Unshare(c *gin.Context) {
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

	sharedUserID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.shareService.Unshare(taskID, userID, sharedUserID); err != nil {
		respondShareError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Share removed successfully",
	})
}

func respondShareError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrShareNotFound),
		errors.Is(err, services.ErrShareTargetMissing):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTaskOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrShareEmailRequired),
		errors.Is(err, services.ErrShareInvalidAccess),
		errors.Is(err, services.ErrShareWithSelf):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
