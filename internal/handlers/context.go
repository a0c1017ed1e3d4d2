package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/middleware"
)

// currentUserID extracts the authenticated user's id placed by the auth
// middleware. The second return is false for unauthenticated requests.
func currentUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.CtxUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
