package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/plandeck/task-planner-api/internal/config"
	"github.com/plandeck/task-planner-api/internal/constants"
	"github.com/plandeck/task-planner-api/internal/database"
	"github.com/plandeck/task-planner-api/internal/handlers"
	"github.com/plandeck/task-planner-api/internal/middleware"
	"github.com/plandeck/task-planner-api/internal/repository"
	"github.com/plandeck/task-planner-api/internal/scheduler"
	"github.com/plandeck/task-planner-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	db := database.GetDB()
	if err := database.AddIndexes(db); err != nil {
		log.Printf("Failed to add indexes: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	tagRepo := repository.NewTagRepository(db)
	shareRepo := repository.NewShareRepository(db)
	recurrenceRepo := repository.NewRecurrenceRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	taskService := services.NewTaskService(taskRepo, tagRepo)
	tagService := services.NewTagService(tagRepo)
	shareService := services.NewShareService(shareRepo, taskRepo, userRepo)
	generatorService := services.NewGeneratorService(recurrenceRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService)
	tagHandler := handlers.NewTagHandler(tagService)
	shareHandler := handlers.NewShareHandler(shareService)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task Planner API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// Tag routes (protected)
		tags := api.Group("/tags")
		tags.Use(middleware.RequireAuth())
		{
			tags.GET("", tagHandler.ListTags)
			tags.POST("", tagHandler.CreateTag)
			tags.PATCH("/:id", tagHandler.UpdateTag)
			tags.DELETE("/:id", tagHandler.DeleteTag)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/shared-with-me", shareHandler.ListSharedWithMe)
			tasks.POST("/:id/restore", taskHandler.RestoreTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), middleware.RequireTaskEditAccess(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.POST("/:id/duplicate", middleware.RequireTaskAccess(), taskHandler.DuplicateTask)
			tasks.GET("/:id/recurrence", middleware.RequireTaskAccess(), taskHandler.GetRecurrence)
			tasks.PUT("/:id/recurrence", middleware.RequireTaskAccess(), middleware.RequireTaskEditAccess(), taskHandler.UpdateRecurrence)
			tasks.DELETE("/:id/recurrence", middleware.RequireTaskAccess(), middleware.RequireTaskEditAccess(), taskHandler.DeleteRecurrence)
			tasks.GET("/:id/history", middleware.RequireTaskAccess(), taskHandler.ListHistory)
			tasks.POST("/:id/share", middleware.RequireTaskAccess(), shareHandler.ShareTask)
			tasks.DELETE("/:id/share/:userId", middleware.RequireTaskAccess(), shareHandler.Unshare)
		}
	}

	// Background instance generation
	sched := scheduler.New(time.UTC)
	_, err = sched.ScheduleInterval(cfg.GenerationInterval, func() {
		summary, err := generatorService.RunGenerationPass(context.Background(), time.Now().UTC())
		if err != nil {
			if errors.Is(err, services.ErrPassInFlight) {
				log.Println("Skipping generation pass, previous pass still running")
				return
			}
			log.Printf("Generation pass failed: %v", err)
			return
		}
		log.Printf("Generation pass %s: %d templates, %d generated, %d skipped, %d failed",
			summary.PassID, summary.Templates, summary.Generated, summary.Skipped, summary.Failed)
	})
	if err != nil {
		log.Fatalf("Failed to schedule generation pass: %v", err)
	}
	sched.Start()

	// Start server
	log.Println("Server starting on :8080")
	err = r.Run(":8080")
	sched.Stop()
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
