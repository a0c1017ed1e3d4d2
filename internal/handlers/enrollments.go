package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

// EnrollmentHandler serves student enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
}

type createEnrollmentRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid4"`
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(enrollments *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// POST /api/enrollments
func (h *EnrollmentHandler) Create(c *gin.Context) {
	studentID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createEnrollmentRequest
	if !bindAndValidate(c, &body) {
		return
	}

	enrollment, err := h.enrollments.Create(c.Request.Context(), studentID, body.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, enrollment)
}

// GET /api/enrollments/my-courses
func (h *EnrollmentHandler) MyCourses(c *gin.Context) {
	studentID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	enrollments, err := h.enrollments.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, enrollments)
}
