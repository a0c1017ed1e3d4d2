package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/handlers"
)

func registerChatRoutes(r *gin.Engine, deps Dependencies) {
	if deps.Hub == nil {
		return
	}

	handler := handlers.NewChatWSHandler(deps.JWT, deps.Hub)
	r.GET("/ws/chat", handler.Serve)
}
