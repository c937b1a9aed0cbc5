package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plandeck/task-planner-api/internal/dto"
	apierrors "github.com/plandeck/task-planner-api/internal/errors"
	"github.com/plandeck/task-planner-api/internal/middleware"
	"github.com/plandeck/task-planner-api/internal/services"
)

// TagHandler coordinates tag-related HTTP handlers.
type TagHandler struct {
	tagService *services.TagService
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tagService *services.TagService) *TagHandler {
	return &TagHandler{
		tagService: tagService,
	}
}

// ListTags returns all tags owned by the current user.
func (h *TagHandler) ListTags(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tags, err := h.tagService.ListTags(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tags")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tags": dto.ToTagDTOs(tags),
	})
}

// CreateTag creates a new tag for the current user.
func (h *TagHandler) CreateTag(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTagRequest struct {
		Name  string `json:"name" binding:"required,max=100"`
		Color string `json:"color" binding:"max=7"`
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tag, err := h.tagService.CreateTag(services.CreateTagInput{
		UserID: userID,
		Name:   req.Name,
		Color:  req.Color,
	})
	if err != nil {
		respondTagError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTagDTO(*tag))
}

// UpdateTag updates a tag's name and color.
func (h *TagHandler) UpdateTag(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tagID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid tag ID")
		return
	}

	type UpdateTagRequest struct {
		Name  *string `json:"name" binding:"omitempty,max=100"`
		Color *string `json:"color" binding:"omitempty,max=7"`
	}

	var req UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tag, err := h.tagService.UpdateTag(tagID, userID, services.UpdateTagInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		respondTagError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTagDTO(*tag))
}

// DeleteTag deletes a tag and detaches it from all tasks.
func (h *TagHandler) DeleteTag(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tagID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid tag ID")
		return
	}

	if err := h.tagService.DeleteTag(tagID, userID); err != nil {
		respondTagError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tag deleted successfully",
	})
}

func respondTagError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTagNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTagOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTagNameRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTagNameTaken):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
