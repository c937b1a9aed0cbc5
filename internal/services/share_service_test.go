package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ShareServiceTestSuite defines the test suite for ShareService
type ShareServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ShareService
}

// SetupTest runs before each test
func (suite *ShareServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Task{},
		&models.TaskShare{},
	)
	suite.Require().NoError(err)

	suite.service = NewShareService(
		repository.NewShareRepository(suite.db),
		repository.NewTaskRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
}

// TearDownTest runs after each test
func (suite *ShareServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ShareServiceTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *ShareServiceTestSuite) createTestTask(title string, userID uint64) *models.Task {
	task := &models.Task{
		UserID:   userID,
		Title:    title,
		Priority: models.TaskPriorityMedium,
		Status:   models.TaskStatusPlanned,
	}
	suite.db.Create(task)
	return task
}

// TestShareTask_Success tests sharing a task by email
func (suite *ShareServiceTestSuite) TestShareTask_Success() {
	owner := suite.createTestUser("owner@example.com")
	target := suite.createTestUser("friend@example.com")
	task := suite.createTestTask("Shared Task", owner.ID)

	share, err := suite.service.ShareTask(ShareTaskInput{
		TaskID:      task.ID,
		OwnerID:     owner.ID,
		TargetEmail: "Friend@Example.com",
		AccessLevel: models.ShareAccessView,
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), target.ID, share.SharedUserID)
	assert.Equal(suite.T(), models.ShareAccessView, share.AccessLevel)

	shares, err := suite.service.ListSharedWithUser(target.ID)
	assert.NoError(suite.T(), err)
	suite.Require().Len(shares, 1)
	assert.Equal(suite.T(), task.Title, shares[0].Task.Title)
}

// TestShareTask_ReShareUpdatesAccess tests that re-sharing upgrades the level
// instead of duplicating the share
func (suite *ShareServiceTestSuite) TestShareTask_ReShareUpdatesAccess() {
	owner := suite.createTestUser("owner@example.com")
	target := suite.createTestUser("friend@example.com")
	task := suite.createTestTask("Shared Task", owner.ID)

	_, err := suite.service.ShareTask(ShareTaskInput{
		TaskID:      task.ID,
		OwnerID:     owner.ID,
		TargetEmail: target.Email,
		AccessLevel: models.ShareAccessView,
	})
	suite.Require().NoError(err)

	_, err = suite.service.ShareTask(ShareTaskInput{
		TaskID:      task.ID,
		OwnerID:     owner.ID,
		TargetEmail: target.Email,
		AccessLevel: models.ShareAccessEdit,
	})
	suite.Require().NoError(err)

	var count int64
	suite.db.Model(&models.TaskShare{}).Where("task_id = ?", task.ID).Count(&count)
	assert.Equal(suite.T(), int64(1), count)

	shares, err := suite.service.ListSharedWithUser(target.ID)
	assert.NoError(suite.T(), err)
	suite.Require().Len(shares, 1)
	assert.Equal(suite.T(), models.ShareAccessEdit, shares[0].AccessLevel)
}

// TestShareTask_NotOwner tests that only the owner can share
func (suite *ShareServiceTestSuite) TestShareTask_NotOwner() {
	owner := suite.createTestUser("owner@example.com")
	intruder := suite.createTestUser("intruder@example.com")
	suite.createTestUser("friend@example.com")
	task := suite.createTestTask("Private Task", owner.ID)

	_, err := suite.service.ShareTask(ShareTaskInput{
		TaskID:      task.ID,
		OwnerID:     intruder.ID,
		TargetEmail: "friend@example.com",
		AccessLevel: models.ShareAccessView,
	})
	assert.ErrorIs(suite.T(), err, ErrNotTaskOwner)
}

// TestShareTask_WithSelf tests that self-shares are rejected
func (suite *ShareServiceTestSuite) TestShareTask_WithSelf() {
	owner := suite.createTestUser("owner@example.com")
	task := suite.createTestTask("My Task", owner.ID)

	_, err := suite.service.ShareTask(ShareTaskInput{
		TaskID:      task.ID,
		OwnerID:     owner.ID,
		TargetEmail: owner.Email,
		AccessLevel: models.ShareAccessView,
	})
	assert.ErrorIs(suite.T(), err, ErrShareWithSelf)
}

// TestUnshare_RecipientMayRemove tests that the recipient can end the share
func (suite *ShareServiceTestSuite) TestUnshare_RecipientMayRemove() {
	owner := suite.createTestUser("owner@example.com")
	target := suite.createTestUser("friend@example.com")
	task := suite.createTestTask("Shared Task", owner.ID)

	_, err := suite.service.ShareTask(ShareTaskInput{
		TaskID:      task.ID,
		OwnerID:     owner.ID,
		TargetEmail: target.Email,
		AccessLevel: models.ShareAccessView,
	})
	suite.Require().NoError(err)

	err = suite.service.Unshare(task.ID, target.ID, target.ID)
	assert.NoError(suite.T(), err)

	shares, err := suite.service.ListSharedWithUser(target.ID)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), shares)

	// Removing an already-removed share reports it missing
	err = suite.service.Unshare(task.ID, owner.ID, target.ID)
	assert.ErrorIs(suite.T(), err, ErrShareNotFound)
}

// TestShareServiceTestSuite runs the test suite
func TestShareServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ShareServiceTestSuite))
}
