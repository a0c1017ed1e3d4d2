package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/handlers"
)

func registerConversationRoutes(r *gin.Engine, deps Dependencies, requireAuth gin.HandlerFunc) {
	handler := handlers.NewConversationHandler(deps.Conversations, deps.Chat)

	conversations := r.Group("/api/conversations", requireAuth)
	{
		conversations.GET("", handler.List)
		conversations.POST("/start", handler.Start)
		conversations.POST("/messages", handler.Send)
		conversations.GET("/:id/messages", handler.Messages)
	}
}
