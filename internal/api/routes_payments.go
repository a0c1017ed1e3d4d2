package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/handlers"
	"github.com/homelearnhq/homelearn/internal/middleware"
	"github.com/homelearnhq/homelearn/internal/models"
)

func registerPaymentRoutes(r *gin.Engine, deps Dependencies, requireAuth gin.HandlerFunc) {
	handler := handlers.NewPaymentHandler(deps.Payments)
	requireStudent := middleware.RequireRole(models.RoleStudent)

	payments := r.Group("/api/payments", requireAuth, requireStudent)
	{
		payments.GET("", handler.List)
		payments.POST("/intent", handler.CreateIntent)
		payments.POST("/confirm", handler.Confirm)
		payments.POST("/refund", handler.Refund)
	}
}
