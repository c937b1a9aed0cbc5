package dto

import (
	"time"

	"github.com/plandeck/task-planner-api/internal/models"
)

// TagDTO represents a tag in API responses
type TagDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// ToTagDTO converts a Tag model to TagDTO
func ToTagDTO(tag models.Tag) TagDTO {
	return TagDTO{
		ID:        tag.ID,
		Name:      tag.Name,
		Color:     tag.Color,
		CreatedAt: tag.CreatedAt,
	}
}

// ToTagDTOs converts a slice of Tag models to TagDTOs
func ToTagDTOs(tags []models.Tag) []TagDTO {
	items := make([]TagDTO, len(tags))
	for i, tag := range tags {
		items[i] = ToTagDTO(tag)
	}
	return items
}
