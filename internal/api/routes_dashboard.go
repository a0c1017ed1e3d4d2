package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/handlers"
	"github.com/homelearnhq/homelearn/internal/middleware"
	"github.com/homelearnhq/homelearn/internal/models"
)

func registerDashboardRoutes(r *gin.Engine, deps Dependencies, requireAuth gin.HandlerFunc) {
	handler := handlers.NewDashboardHandler(deps.Dashboard)

	r.GET("/api/dashboard", requireAuth, middleware.RequireRole(models.RoleTeacher), handler.Stats)
}
