package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/itmsdev/itms-api/internal/config"
	"github.com/itmsdev/itms-api/internal/constants"
	"github.com/itmsdev/itms-api/internal/database"
	"github.com/itmsdev/itms-api/internal/handlers"
	"github.com/itmsdev/itms-api/internal/history"
	"github.com/itmsdev/itms-api/internal/middleware"
	"github.com/itmsdev/itms-api/internal/models"
	"github.com/itmsdev/itms-api/internal/repository"
	"github.com/itmsdev/itms-api/internal/services"
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
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Initialize repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	recorder := history.NewGormRecorder(db)

	// Initialize services
	authService := services.NewAuthService(userRepo)
	projectService := services.NewProjectService(projectRepo, userRepo, labelRepo)
	issueService := services.NewIssueService(issueRepo, labelRepo, projectRepo, recorder)
	commentService := services.NewCommentService(commentRepo, issueService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	projectHandler := handlers.NewProjectHandler(projectService)
	memberHandler := handlers.NewMemberHandler(projectService)
	issueHandler := handlers.NewIssueHandler(issueService)
	labelHandler := handlers.NewLabelHandler(projectService)
	commentHandler := handlers.NewCommentHandler(commentService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Issue Tracker API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
		}

		// Current user routes (protected)
		me := api.Group("/me")
		me.Use(middleware.RequireAuth())
		{
			me.GET("", authHandler.GetCurrentUser)
			me.PATCH("", authHandler.UpdateCurrentUser)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:project_id", projectHandler.GetProject)
			projects.PATCH("/:project_id", middleware.RequireProjectRole(models.RoleLead), projectHandler.EditProject)
			projects.PUT("/:project_id/visibility", middleware.RequireProjectRole(models.RoleLead), projectHandler.UpdateVisibility)
			projects.DELETE("/:project_id", middleware.RequireProjectRole(models.RoleLead), projectHandler.DeleteProject)

			// Membership
			projects.GET("/:project_id/members", memberHandler.ListMembers)
			projects.POST("/:project_id/members", middleware.RequireProjectRole(models.RoleLead), memberHandler.AddMember)
			projects.PATCH("/:project_id/members/:user_id", middleware.RequireProjectRole(models.RoleLead), memberHandler.ChangeMemberRole)
			projects.DELETE("/:project_id/members/:user_id", middleware.RequireProjectRole(models.RoleLead), memberHandler.RemoveMember)

			// Issues within a project
			projects.GET("/:project_id/issues", middleware.RequireProjectVisible(), issueHandler.ListIssues)
			projects.POST("/:project_id/issues", middleware.RequireProjectRole(models.RoleLead, models.RoleDeveloper, models.RoleViewer), issueHandler.CreateIssue)

			// Labels
			projects.GET("/:project_id/labels", middleware.RequireProjectVisible(), labelHandler.ListLabels)
			projects.POST("/:project_id/labels", middleware.RequireProjectRole(models.RoleLead, models.RoleDeveloper), labelHandler.CreateLabel)
			projects.DELETE("/:project_id/labels/:label_id", middleware.RequireProjectRole(models.RoleLead, models.RoleDeveloper), labelHandler.DeleteLabel)
		}

		// Issue routes (protected); visibility checks live in the services
		issues := api.Group("/issues")
		issues.Use(middleware.RequireAuth())
		{
			issues.GET("/:issue_id", issueHandler.GetIssue)
			issues.PATCH("/:issue_id", issueHandler.EditIssue)
			issues.PUT("/:issue_id/assignee", issueHandler.UpdateAssignee)
			issues.GET("/:issue_id/history", issueHandler.History)
			issues.POST("/:issue_id/labels", issueHandler.AddLabel)
			issues.DELETE("/:issue_id/labels/:label_id", issueHandler.RemoveLabel)
			issues.GET("/:issue_id/comments", commentHandler.ListComments)
			issues.POST("/:issue_id/comments", commentHandler.PostComment)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth())
		{
			comments.PATCH("/:comment_id", commentHandler.EditComment)
			comments.DELETE("/:comment_id", commentHandler.DeleteComment)
		}
	}

	// Start server
	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
