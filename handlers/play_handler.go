package handlers

import (
	"net/http"

	"fumiq/services"

	"github.com/gin-gonic/gin"
)

// PlayHandler is the competitor's side of a session: resolving a join code,
// entering the session, finishing, and reading one's own score.
type PlayHandler struct {
	sessionService *services.SessionService
	scoringService *services.ScoringService
}

func NewPlayHandler(sessionService *services.SessionService, scoringService *services.ScoringService) *PlayHandler {
	return &PlayHandler{
		sessionService: sessionService,
		scoringService: scoringService,
	}
}

func (h *PlayHandler) JoinByCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	code := c.Param("code")

	session, err := h.sessionService.JoinByCode(c.Request.Context(), code, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"quiz_id":    session.QuizID,
		"code":       session.Code,
	})
}

func (h *PlayHandler) EnterSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	entry, err := h.sessionService.Enter(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *PlayHandler) FinishSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	if err := h.sessionService.Finish(c.Request.Context(), sessionID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Submission recorded"})
}

func (h *PlayHandler) GetOwnScore(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "sessionId")
	if !ok {
		return
	}

	score, err := h.scoringService.CompetitorScore(c.Request.Context(), sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"score": score})
}
