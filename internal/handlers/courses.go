package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/response"
)

// CourseHandler serves the public catalog and teacher-side course CRUD.
type CourseHandler struct {
	courses *services.CourseService
}

type createCourseRequest struct {
	Title          string          `json:"title" validate:"required,max=200"`
	Description    string          `json:"description" validate:"max=5000"`
	Category       string          `json:"category" validate:"required"`
	Price          decimal.Decimal `json:"price"`
	City           string          `json:"city" validate:"required,max=100"`
	CourseDateTime time.Time       `json:"course_date_time" validate:"required"`
	Duration       int             `json:"duration" validate:"omitempty,min=1"`
	MaxStudents    *int            `json:"max_students"`
}

type updateCourseRequest struct {
	Title          *string          `json:"title" validate:"omitempty,max=200"`
	Description    *string          `json:"description" validate:"omitempty,max=5000"`
	Category       *string          `json:"category"`
	Price          *decimal.Decimal `json:"price"`
	City           *string          `json:"city" validate:"omitempty,max=100"`
	CourseDateTime *time.Time       `json:"course_date_time"`
	Duration       *int             `json:"duration" validate:"omitempty,min=1"`
	MaxStudents    *int             `json:"max_students"`
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// GET /api/courses
func (h *CourseHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 20)

	courses, total, err := h.courses.List(c.Request.Context(), services.ListCoursesOptions{
		Page:     page,
		PageSize: perPage,
		Filter: services.CourseFilter{
			Keyword:  c.Query("keyword"),
			Title:    c.Query("title"),
			Category: c.Query("category"),
			City:     c.Query("city"),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, courses, &response.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, course)
}

// GET /api/courses/mine
func (h *CourseHandler) Mine(c *gin.Context) {
	teacherID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	courses, err := h.courses.ListByTeacher(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, courses)
}

// POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	teacherID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createCourseRequest
	if !bindAndValidate(c, &body) {
		return
	}

	course, err := h.courses.Create(c.Request.Context(), teacherID, services.CreateCourseInput{
		Title:          body.Title,
		Description:    body.Description,
		Category:       body.Category,
		Price:          body.Price,
		City:           body.City,
		CourseDateTime: body.CourseDateTime,
		Duration:       body.Duration,
		MaxStudents:    body.MaxStudents,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, course)
}

// PUT /api/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	teacherID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body updateCourseRequest
	if !bindAndValidate(c, &body) {
		return
	}

	course, err := h.courses.Update(c.Request.Context(), teacherID, c.Param("id"), services.UpdateCourseInput{
		Title:          body.Title,
		Description:    body.Description,
		Category:       body.Category,
		Price:          body.Price,
		City:           body.City,
		CourseDateTime: body.CourseDateTime,
		Duration:       body.Duration,
		MaxStudents:    body.MaxStudents,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, course)
}

// DELETE /api/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	teacherID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.courses.Delete(c.Request.Context(), teacherID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
