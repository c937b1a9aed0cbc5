package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/plandeck/task-planner-api/internal/constants"
	"github.com/plandeck/task-planner-api/internal/database"
	"github.com/plandeck/task-planner-api/internal/dto"
	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/repository"
	"github.com/plandeck/task-planner-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *TaskHandler
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	// Run migrations
	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Task{},
		&models.RecurrenceRule{},
		&models.TaskShare{},
		&models.TaskHistory{},
	)
	suite.Require().NoError(err)

	// Set the test DB as the default database
	database.SetDB(suite.db)

	taskRepo := repository.NewTaskRepository(suite.db)
	tagRepo := repository.NewTagRepository(suite.db)
	suite.handler = NewTaskHandler(services.NewTaskService(taskRepo, tagRepo))

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper function to create test data
func (suite *TaskHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *TaskHandlerTestSuite) createTestTask(title string, userID uint64) *models.Task {
	task := &models.Task{
		UserID:      userID,
		Title:       title,
		Description: "Test Description",
		Priority:    models.TaskPriorityMedium,
		Status:      models.TaskStatusPlanned,
	}
	suite.db.Create(task)
	return task
}

func (suite *TaskHandlerTestSuite) createTestTag(name string, userID uint64) *models.Tag {
	tag := &models.Tag{
		UserID: userID,
		Name:   name,
	}
	suite.db.Create(tag)
	return tag
}

// Helper function to create authenticated context
func (suite *TaskHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)

	return c, w
}

// Helper function to set task context (simulates RequireTaskAccess middleware)
func (suite *TaskHandlerTestSuite) setTaskContext(c *gin.Context, task models.Task) {
	c.Set(constants.ContextKeyTask, task)
}

// TestCreateTask_Success tests creating a plain task
func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	user := suite.createTestUser("test@example.com")
	tag := suite.createTestTag("work", user.ID)

	body, _ := json.Marshal(map[string]any{
		"title":       "Write report",
		"description": "Quarterly report",
		"priority":    "high",
		"tag_ids":     []uint64{tag.ID},
	})

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "Write report", response.Title)
	assert.Equal(suite.T(), models.TaskPriorityHigh, response.Priority)
	assert.Equal(suite.T(), models.TaskStatusPlanned, response.Status)
	assert.False(suite.T(), response.IsRecurring)
	assert.Len(suite.T(), response.Tags, 1)
}

// TestCreateTask_WithRecurrence tests creating a recurring template
func (suite *TaskHandlerTestSuite) TestCreateTask_WithRecurrence() {
	user := suite.createTestUser("test@example.com")

	body, _ := json.Marshal(map[string]any{
		"title":          "Water plants",
		"start_datetime": "2026-03-10T09:00:00Z",
		"recurrence": map[string]any{
			"recurrence_type": "weekly",
			"interval_value":  2,
		},
	})

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(suite.T(), response.IsRecurring)
	suite.Require().NotNil(response.Recurrence)
	assert.Equal(suite.T(), models.RecurrenceWeekly, response.Recurrence.RecurrenceType)
	assert.Equal(suite.T(), 2, response.Recurrence.IntervalValue)
	assert.Equal(suite.T(), models.RecurrenceEndNever, response.Recurrence.EndType)
	assert.Equal(suite.T(), 0, response.Recurrence.CurrentCount)
	assert.Nil(suite.T(), response.Recurrence.LastGenerated)
}

// TestCreateTask_InvalidRecurrence tests that a bad rule rejects the task
func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidRecurrence() {
	user := suite.createTestUser("test@example.com")

	body, _ := json.Marshal(map[string]any{
		"title": "Bad rule",
		"recurrence": map[string]any{
			"recurrence_type": "daily",
			"end_type":        "count",
		},
	})

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestCreateTask_MissingTitle tests validation of the required title
func (suite *TaskHandlerTestSuite) TestCreateTask_MissingTitle() {
	user := suite.createTestUser("test@example.com")

	body, _ := json.Marshal(map[string]any{
		"description": "no title",
	})

	c, w := suite.createAuthContext("POST", "/api/tasks", body, user.ID)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestGetTask_Success tests returning a task loaded by the middleware
func (suite *TaskHandlerTestSuite) TestGetTask_Success() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Test Task", user.ID)

	c, w := suite.createAuthContext("GET", "/api/tasks/1", nil, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.GetTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), task.Title, response.Title)
}

// TestUpdateTask_StatusChange tests a partial update recording history
func (suite *TaskHandlerTestSuite) TestUpdateTask_StatusChange() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Test Task", user.ID)

	body, _ := json.Marshal(map[string]any{
		"status": "done",
	})

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), models.TaskStatusDone, response.Status)
	assert.Equal(suite.T(), task.Title, response.Title)

	var entry models.TaskHistory
	err := suite.db.Where("task_id = ? AND action = ?", task.ID, models.HistoryActionStatusChanged).First(&entry).Error
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(entry.OldValue)
	suite.Require().NotNil(entry.NewValue)
	assert.Equal(suite.T(), string(models.TaskStatusPlanned), *entry.OldValue)
	assert.Equal(suite.T(), string(models.TaskStatusDone), *entry.NewValue)
}

// TestUpdateTask_ClearStart tests that an explicit null clears the start
func (suite *TaskHandlerTestSuite) TestUpdateTask_ClearStart() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Test Task", user.ID)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	task.StartDatetime = &start
	suite.db.Save(task)

	c, w := suite.createAuthContext("PATCH", "/api/tasks/1", []byte(`{"start_datetime": null}`), user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Nil(suite.T(), response.StartDatetime)
}

// TestDeleteTask_NotOwner tests that a non-owner cannot delete
func (suite *TaskHandlerTestSuite) TestDeleteTask_NotOwner() {
	owner := suite.createTestUser("owner@example.com")
	other := suite.createTestUser("other@example.com")
	task := suite.createTestTask("Test Task", owner.ID)

	c, w := suite.createAuthContext("DELETE", "/api/tasks/1", nil, other.ID)
	suite.setTaskContext(c, *task)

	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestRestoreTask_Success tests restoring a soft-deleted task
func (suite *TaskHandlerTestSuite) TestRestoreTask_Success() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Test Task", user.ID)
	suite.Require().NoError(suite.db.Delete(&models.Task{}, task.ID).Error)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/restore", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.RestoreTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var restored models.Task
	err := suite.db.First(&restored, task.ID).Error
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), restored.IsArchived)
}

// TestRestoreTask_NotOwner tests that restore does not leak other users' tasks
func (suite *TaskHandlerTestSuite) TestRestoreTask_NotOwner() {
	owner := suite.createTestUser("owner@example.com")
	other := suite.createTestUser("other@example.com")
	task := suite.createTestTask("Test Task", owner.ID)
	suite.Require().NoError(suite.db.Delete(&models.Task{}, task.ID).Error)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/restore", nil, other.ID)
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	suite.handler.RestoreTask(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestDuplicateTask_Success tests copying a task without its recurrence
func (suite *TaskHandlerTestSuite) TestDuplicateTask_Success() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Original", user.ID)
	tag := suite.createTestTag("work", user.ID)
	suite.Require().NoError(suite.db.Exec("INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?)", task.ID, tag.ID).Error)
	rule := models.RecurrenceRule{
		TaskID:         task.ID,
		RecurrenceType: models.RecurrenceDaily,
		IntervalValue:  1,
		EndType:        models.RecurrenceEndNever,
	}
	suite.Require().NoError(suite.db.Create(&rule).Error)
	task.IsRecurring = true
	suite.db.Save(task)

	c, w := suite.createAuthContext("POST", "/api/tasks/1/duplicate", nil, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.DuplicateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.TaskDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), "Original (copy)", response.Title)
	assert.False(suite.T(), response.IsRecurring)
	assert.Nil(suite.T(), response.Recurrence)
	assert.Len(suite.T(), response.Tags, 1)
}

// TestUpdateRecurrence_KeepsBookkeeping tests that editing a rule leaves the
// generation progress untouched
func (suite *TaskHandlerTestSuite) TestUpdateRecurrence_KeepsBookkeeping() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Recurring", user.ID)
	lastGenerated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rule := models.RecurrenceRule{
		TaskID:         task.ID,
		RecurrenceType: models.RecurrenceDaily,
		IntervalValue:  1,
		EndType:        models.RecurrenceEndNever,
		CurrentCount:   4,
		LastGenerated:  &lastGenerated,
	}
	suite.Require().NoError(suite.db.Create(&rule).Error)
	task.IsRecurring = true
	suite.db.Save(task)

	body, _ := json.Marshal(map[string]any{
		"recurrence_type": "weekly",
		"interval_value":  3,
	})

	c, w := suite.createAuthContext("PUT", "/api/tasks/1/recurrence", body, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.UpdateRecurrence(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.RecurrenceDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), models.RecurrenceWeekly, response.RecurrenceType)
	assert.Equal(suite.T(), 3, response.IntervalValue)
	assert.Equal(suite.T(), 4, response.CurrentCount)
	suite.Require().NotNil(response.LastGenerated)
}

// TestDeleteRecurrence_Success tests detaching a rule from its task
func (suite *TaskHandlerTestSuite) TestDeleteRecurrence_Success() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Recurring", user.ID)
	rule := models.RecurrenceRule{
		TaskID:         task.ID,
		RecurrenceType: models.RecurrenceDaily,
		IntervalValue:  1,
		EndType:        models.RecurrenceEndNever,
	}
	suite.Require().NoError(suite.db.Create(&rule).Error)
	task.IsRecurring = true
	suite.db.Save(task)

	c, w := suite.createAuthContext("DELETE", "/api/tasks/1/recurrence", nil, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.DeleteRecurrence(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var updated models.Task
	suite.Require().NoError(suite.db.First(&updated, task.ID).Error)
	assert.False(suite.T(), updated.IsRecurring)

	var count int64
	suite.db.Model(&models.RecurrenceRule{}).Where("task_id = ?", task.ID).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestListHistory_Success tests reading the audit trail
func (suite *TaskHandlerTestSuite) TestListHistory_Success() {
	user := suite.createTestUser("test@example.com")
	task := suite.createTestTask("Test Task", user.ID)
	suite.Require().NoError(suite.db.Create(&models.TaskHistory{
		TaskID: task.ID,
		UserID: user.ID,
		Action: models.HistoryActionCreated,
	}).Error)

	c, w := suite.createAuthContext("GET", "/api/tasks/1/history", nil, user.ID)
	suite.setTaskContext(c, *task)

	suite.handler.ListHistory(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string][]dto.HistoryDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().Len(response["history"], 1)
	assert.Equal(suite.T(), models.HistoryActionCreated, response["history"][0].Action)
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
