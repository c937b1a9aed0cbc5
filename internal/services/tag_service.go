package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrTagNameRequired = errors.New("tag name is required")
	ErrTagNameTaken    = errors.New("tag with this name already exists")
	ErrNotTagOwner     = errors.New("tag belongs to another user")
)

const defaultTagColor = "#808080"

// TagService handles tag business logic
type TagService struct {
	tagRepo repository.TagRepository
}

// NewTagService creates a new TagService
func NewTagService(tagRepo repository.TagRepository) *TagService {
	return &TagService{tagRepo: tagRepo}
}

// ListTags returns all tags owned by a user
func (s *TagService) ListTags(userID uint64) ([]models.Tag, error) {
	tags, err := s.tagRepo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// GetTag returns a tag owned by the user
func (s *TagService) GetTag(tagID, userID uint64) (*models.Tag, error) {
	tag, err := s.tagRepo.FindByID(tagID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	if tag.UserID != userID {
		return nil, ErrNotTagOwner
	}
	return tag, nil
}

// CreateTagInput represents input for creating a tag
type CreateTagInput struct {
	UserID uint64
	Name   string
	Color  string
}

// CreateTag creates a new tag for a user
func (s *TagService) CreateTag(input CreateTagInput) (*models.Tag, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTagNameRequired
	}

	if _, err := s.tagRepo.FindByName(input.UserID, name); err == nil {
		return nil, ErrTagNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check tag name: %w", err)
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = defaultTagColor
	}

	tag := &models.Tag{
		UserID: input.UserID,
		Name:   name,
		Color:  color,
	}

	if err := s.tagRepo.Create(tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return tag, nil
}

// UpdateTagInput represents input for updating a tag
type UpdateTagInput struct {
	Name  *string
	Color *string
}

// UpdateTag updates a tag's name and color
func (s *TagService) UpdateTag(tagID, userID uint64, input UpdateTagInput) (*models.Tag, error) {
	tag, err := s.GetTag(tagID, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTagNameRequired
		}
		if name != tag.Name {
			if _, err := s.tagRepo.FindByName(userID, name); err == nil {
				return nil, ErrTagNameTaken
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check tag name: %w", err)
			}
			tag.Name = name
		}
	}
	if input.Color != nil && strings.TrimSpace(*input.Color) != "" {
		tag.Color = strings.TrimSpace(*input.Color)
	}

	if err := s.tagRepo.Update(tag); err != nil {
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}

	return tag, nil
}

// DeleteTag deletes a tag and detaches it from all tasks
func (s *TagService) DeleteTag(tagID, userID uint64) error {
	if _, err := s.GetTag(tagID, userID); err != nil {
		return err
	}

	if err := s.tagRepo.Delete(tagID); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	return nil
}
