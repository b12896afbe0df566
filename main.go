package main

import (
	"log"

	"fumiq/config"
	"fumiq/handlers"
	"fumiq/middleware"
	"fumiq/models"
	"fumiq/routes"
	"fumiq/services"
	"fumiq/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Session{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	cache := services.NewRedisCache(redisClient)

	// Initialize stores
	userStore := storage.NewUserStore(db)
	quizStore := storage.NewQuizStore(db)
	sessionStore := storage.NewSessionStore(db)

	// Initialize services
	authService := services.NewAuthService(userStore, cfg.JWTSecret)
	quizService := services.NewQuizService(quizStore)
	sessionService := services.NewSessionService(sessionStore, quizStore, userStore)
	scoringService := services.NewScoringService(sessionStore, quizStore, userStore, cache)
	analyticsService := services.NewAnalyticsService(sessionStore, quizStore, cache)

	// Initialize WebSocket hub
	hub := services.NewHub(sessionService)
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)
	sessionHandler := handlers.NewSessionHandler(sessionService, scoringService, analyticsService)
	playHandler := handlers.NewPlayHandler(sessionService, scoringService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, quizHandler, sessionHandler, playHandler, hub, sessionService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
