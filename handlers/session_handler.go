package handlers

import (
	"net/http"

	"fumiq/services"

	"github.com/gin-gonic/gin"
)

// SessionHandler is the owner's side of a session: lifecycle, live progress,
// results and analytics.
type SessionHandler struct {
	sessionService   *services.SessionService
	scoringService   *services.ScoringService
	analyticsService *services.AnalyticsService
}

func NewSessionHandler(
	sessionService *services.SessionService,
	scoringService *services.ScoringService,
	analyticsService *services.AnalyticsService,
) *SessionHandler {
	return &SessionHandler{
		sessionService:   sessionService,
		scoringService:   scoringService,
		analyticsService: analyticsService,
	}
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), quizID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) CloseSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	session, err := h.sessionService.Close(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) GetClosedSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}

	summaries, err := h.sessionService.ListClosed(c.Request.Context(), quizID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (h *SessionHandler) GetLiveView(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	progress, err := h.sessionService.LiveView(c.Request.Context(), quizID, sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *SessionHandler) GetResults(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	results, err := h.scoringService.Results(c.Request.Context(), quizID, sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *SessionHandler) GetAnalytics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	analytics, err := h.analyticsService.Analyze(c.Request.Context(), quizID, sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}
