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
	ErrShareEmailRequired = errors.New("email is required")
	ErrShareInvalidAccess = errors.New("invalid access level")
	ErrShareTargetMissing = errors.New("user with this email not found")
	ErrShareWithSelf      = errors.New("cannot share a task with yourself")
	ErrShareNotFound      = errors.New("share not found")
	ErrNotTaskOwner       = errors.New("only the task owner can perform this action")
)

// ShareService handles task sharing business logic
type ShareService struct {
	shareRepo repository.ShareRepository
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
}

// NewShareService creates a new ShareService
func NewShareService(shareRepo repository.ShareRepository, taskRepo repository.TaskRepository, userRepo repository.UserRepository) *ShareService {
	return &ShareService{
		shareRepo: shareRepo,
		taskRepo:  taskRepo,
		userRepo:  userRepo,
	}
}

// ShareTaskInput represents input for sharing a task
type ShareTaskInput struct {
	TaskID      uint64
	OwnerID     uint64
	TargetEmail string
	AccessLevel models.ShareAccessLevel
}

// ShareTask grants another user access to a task. Sharing the same task with
// the same user again updates the access level and revives a removed share.
func (s *ShareService) ShareTask(input ShareTaskInput) (*models.TaskShare, error) {
	email := strings.ToLower(strings.TrimSpace(input.TargetEmail))
	if email == "" {
		return nil, ErrShareEmailRequired
	}
	if !models.ValidShareAccessLevel(input.AccessLevel) {
		return nil, ErrShareInvalidAccess
	}

	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.UserID != input.OwnerID {
		return nil, ErrNotTaskOwner
	}

	target, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareTargetMissing
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if target.ID == input.OwnerID {
		return nil, ErrShareWithSelf
	}

	share := &models.TaskShare{
		TaskID:       input.TaskID,
		OwnerUserID:  input.OwnerID,
		SharedUserID: target.ID,
		AccessLevel:  input.AccessLevel,
	}

	if err := s.shareRepo.Upsert(share); err != nil {
		return nil, fmt.Errorf("failed to share task: %w", err)
	}

	return share, nil
}

// ListSharedWithUser lists tasks shared with a user
func (s *ShareService) ListSharedWithUser(userID uint64) ([]models.TaskShare, error) {
	shares, err := s.shareRepo.ListSharedWithUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	return shares, nil
}

// Unshare removes a user's access to a shared task. Either side of the share
// may remove it.
func (s *ShareService) Unshare(taskID, actorID, sharedUserID uint64) error {
	share, err := s.shareRepo.FindActive(taskID, sharedUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShareNotFound
		}
		return fmt.Errorf("failed to find share: %w", err)
	}

	if share.OwnerUserID != actorID && share.SharedUserID != actorID {
		return ErrNotTaskOwner
	}

	if err := s.shareRepo.Remove(share.ID); err != nil {
		return fmt.Errorf("failed to remove share: %w", err)
	}

	return nil
}
