package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

// DashboardHandler serves the teacher dashboard.
type DashboardHandler struct {
	dashboard *services.DashboardService
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GET /api/dashboard
func (h *DashboardHandler) Stats(c *gin.Context) {
	teacherID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	stats, err := h.dashboard.StatsForTeacher(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
