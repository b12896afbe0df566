package routes

import (
	"log"
	"net/http"
	"strconv"

	"fumiq/handlers"
	"fumiq/middleware"
	"fumiq/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	sessionHandler *handlers.SessionHandler,
	playHandler *handlers.PlayHandler,
	hub *services.Hub,
	sessionService *services.SessionService,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Quiz catalog routes
			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", quizHandler.GetUserQuizzes)
				quizzes.POST("", quizHandler.CreateQuiz)
				quizzes.GET("/:quizId", quizHandler.GetQuizByID)
				quizzes.PUT("/:quizId", quizHandler.UpdateQuiz)
				quizzes.DELETE("/:quizId", quizHandler.DeleteQuiz)

				// Session lifecycle and reporting, scoped to a quiz
				quizzes.POST("/:quizId/sessions", sessionHandler.StartSession)
				quizzes.GET("/:quizId/sessions", sessionHandler.GetClosedSessions)
				quizzes.GET("/:quizId/sessions/:sessionId/live", sessionHandler.GetLiveView)
				quizzes.GET("/:quizId/sessions/:sessionId/results", sessionHandler.GetResults)
				quizzes.GET("/:quizId/sessions/:sessionId/analytics", sessionHandler.GetAnalytics)
			}

			// Competitor-facing session routes
			sessions := protected.Group("/sessions")
			{
				sessions.POST("/join/:code", playHandler.JoinByCode)
				sessions.GET("/:sessionId", playHandler.EnterSession)
				sessions.POST("/:sessionId/finish", playHandler.FinishSession)
				sessions.GET("/:sessionId/score", playHandler.GetOwnScore)
				sessions.POST("/:sessionId/close", sessionHandler.CloseSession)
			}
		}
	}

	// WebSocket endpoint for the live session channel
	router.GET("/ws/:sessionId/:userId", func(c *gin.Context) {
		sessionID, err := strconv.ParseUint(c.Param("sessionId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
			return
		}
		userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		// The upgrade request cannot carry an Authorization header from a
		// browser, so the token rides a query parameter. The claimed
		// identity must match the path.
		claimID, err := middleware.UserFromToken(c.Query("token"), jwtSecret)
		if err != nil || claimID != uint(userID) {
			log.Printf("live channel token rejected for session %d, user %d: %v", sessionID, userID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if err := sessionService.Attend(c.Request.Context(), uint(sessionID), uint(userID)); err != nil {
			log.Printf("live channel access denied for session %d, user %d: %v", sessionID, userID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not part of this session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed for session %d, user %d: %v", sessionID, userID, err)
			return
		}

		hub.RegisterClient(conn, uint(sessionID), uint(userID))
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
