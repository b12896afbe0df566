package handlers

import (
	"errors"
	"net/http"

	"fumiq/models"

	"github.com/gin-gonic/gin"
)

// respondError renders a typed service error with its own status code.
// Anything untyped becomes an opaque 500 so storage details never leak.
func respondError(c *gin.Context, err error) {
	var appErr *models.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Status, appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return value.(uint), true
}
