package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/novaocc/cora/internal/middleware"
)

// currentUserID extracts the authenticated user set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.CtxUserIDKey)
	if !exists {
		return "", false
	}

	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
