package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/crewdesk/crewdesk-backend/internal/api/handlers"
	"github.com/crewdesk/crewdesk-backend/internal/api/middleware"
	"github.com/crewdesk/crewdesk-backend/internal/config"
	"github.com/crewdesk/crewdesk-backend/internal/cron"
	"github.com/crewdesk/crewdesk-backend/internal/db"
	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/seed"
	"github.com/crewdesk/crewdesk-backend/internal/service"
	"github.com/crewdesk/crewdesk-backend/internal/socket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Database
	// ============================================
	log.Println("[Main] Running database migrations...")
	if err := db.RunMigrations(cfg.DatabaseURL, "./internal/db/migrations"); err != nil {
		log.Fatalf("[Main] Migration failed: %v", err)
	}

	postgres, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Main] Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	repos := repository.NewRepositories(postgres.Pool)

	// ============================================
	// Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("[Main] Redis unavailable: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("[Main] Redis cache enabled")
		}
	}

	// ============================================
	// WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)

	// ============================================
	// Services
	// ============================================
	notificationSvc := notification.NewService(repos.NotificationRepo)
	notificationSvc.SetBroadcaster(broadcaster)
	if redisDB != nil {
		notificationSvc.SetCache(redisDB)
	}

	services := service.NewServices(&service.ServiceDeps{
		Config:   cfg,
		Repos:    repos,
		NotifSvc: notificationSvc,
	})

	wsHandler := socket.NewHandler(hub, services.Chat, cfg.JWTSecret)

	if cfg.Environment != "production" {
		seed.SeedData(repos)
	}

	// ============================================
	// Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(notificationSvc, repos.TaskRepo)
	scheduler.Start()
	defer scheduler.Stop()

	// ============================================
	// Router
	// ============================================
	h := handlers.NewHandlers(services)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		cache := "disabled"
		if redisDB != nil {
			cache = "connected"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"cache":      cache,
			"ws_clients": hub.ConnectedClientCount(),
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		api.GET("/ws", wsHandler.HandleWebSocket)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			users := protected.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.GET("/search", h.User.SearchUsers)
			}

			teams := protected.Group("/teams")
			{
				teams.GET("", h.Team.List)
				teams.POST("", h.Team.Create)
				teams.GET("/:id", h.Team.Get)
				teams.DELETE("/:id", h.Team.Delete)
				teams.GET("/:id/members", h.Team.Members)
				teams.POST("/:id/invites", h.Team.Invite)
				teams.POST("/:id/join", h.Team.Join)
				teams.POST("/:id/leave", h.Team.Leave)
				teams.POST("/:id/members/:userId/promote", h.Team.Promote)
				teams.POST("/:id/members/:userId/demote", h.Team.Demote)
				teams.DELETE("/:id/members/:userId", h.Team.Kick)
			}

			projects := protected.Group("/projects")
			{
				projects.GET("", h.Project.List)
				projects.POST("", h.Project.Create)
				projects.GET("/:id", h.Project.Get)
				projects.PUT("/:id", h.Project.Update)
				projects.DELETE("/:id", h.Project.Delete)
				projects.POST("/:id/members", h.Project.AddMember)
				projects.DELETE("/:id/members/:userId", h.Project.RemoveMember)
				projects.GET("/:id/available-members", h.Project.AvailableTeamMembers)
				projects.GET("/:id/tasks", h.Task.ListByProject)
				projects.POST("/:id/tasks", h.Task.Create)
				projects.GET("/:id/tags", h.Project.ListTags)
				projects.POST("/:id/tags", h.Project.CreateTag)
				projects.DELETE("/:id/tags/:tagId", h.Project.DeleteTag)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("/:id", h.Task.Get)
				tasks.PATCH("/:id", h.Task.Update)
				tasks.DELETE("/:id", h.Task.Delete)
				tasks.GET("/:id/comments", h.Task.ListComments)
				tasks.POST("/:id/comments", h.Task.AddComment)
				tasks.DELETE("/:id/comments/:commentId", h.Task.DeleteComment)
			}

			chat := protected.Group("/chat")
			{
				chat.GET("/:type/:id/messages", h.Chat.History)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/counts", h.Notification.Counts)
				notifications.POST("/read-all", h.Notification.MarkAllRead)
				notifications.POST("/:id/read", h.Notification.MarkRead)
				notifications.DELETE("", h.Notification.DeleteAll)
				notifications.DELETE("/:id", h.Notification.Delete)
			}
		}
	}

	// ============================================
	// Serve with graceful shutdown
	// ============================================
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("[Main] Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Main] Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Main] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] Forced shutdown: %v", err)
	}
	log.Println("[Main] Server stopped")
}
