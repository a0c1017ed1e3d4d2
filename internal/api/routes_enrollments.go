package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/handlers"
	"github.com/homelearnhq/homelearn/internal/middleware"
	"github.com/homelearnhq/homelearn/internal/models"
)

func registerEnrollmentRoutes(r *gin.Engine, deps Dependencies, requireAuth gin.HandlerFunc) {
	handler := handlers.NewEnrollmentHandler(deps.Enrollments)
	requireStudent := middleware.RequireRole(models.RoleStudent)

	enrollments := r.Group("/api/enrollments", requireAuth, requireStudent)
	{
		enrollments.POST("", handler.Create)
		enrollments.GET("/my-courses", handler.MyCourses)
	}
}
