package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/handlers"
	"github.com/homelearnhq/homelearn/internal/middleware"
	"github.com/homelearnhq/homelearn/internal/models"
)

func registerCourseRoutes(r *gin.Engine, deps Dependencies, requireAuth gin.HandlerFunc) {
	handler := handlers.NewCourseHandler(deps.Courses)
	requireTeacher := middleware.RequireRole(models.RoleTeacher)

	courses := r.Group("/api/courses")
	{
		courses.GET("", handler.List)
		courses.GET("/mine", requireAuth, requireTeacher, handler.Mine)
		courses.GET("/:id", handler.Get)
		courses.POST("", requireAuth, requireTeacher, handler.Create)
		courses.PUT("/:id", requireAuth, requireTeacher, handler.Update)
		courses.DELETE("/:id", requireAuth, requireTeacher, handler.Delete)
	}
}
