package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	// ErrCourseNotFound indicates the requested course does not exist.
	ErrCourseNotFound = apperrors.New("COURSE_NOT_FOUND", "Course not found", http.StatusNotFound)
	// ErrNotCourseOwner rejects mutations by anyone but the owning teacher.
	ErrNotCourseOwner = apperrors.New("NOT_COURSE_OWNER", "Only the owning teacher can modify this course", http.StatusForbidden)
)

// CreateCourseInput describes the fields accepted when publishing a course.
type CreateCourseInput struct {
	Title          string
	Description    string
	Category       string
	Price          decimal.Decimal
	City           string
	CourseDateTime time.Time
	Duration       int
	MaxStudents    *int
}

// UpdateCourseInput enumerates mutable course attributes. Nil fields are left
// untouched.
type UpdateCourseInput struct {
	Title          *string
	Description    *string
	Category       *string
	Price          *decimal.Decimal
	City           *string
	CourseDateTime *time.Time
	Duration       *int
	MaxStudents    *int
}

// CourseFilter captures the catalog search filters. Zero values are omitted
// from the query; present filters combine conjunctively.
type CourseFilter struct {
	Keyword  string
	Title    string
	Category string
	City     string
}

// ListCoursesOptions controls filtering and pagination for the catalog.
type ListCoursesOptions struct {
	Page     int
	PageSize int
	Filter   CourseFilter
}

// CourseService manages the course catalog.
type CourseService struct {
	db *gorm.DB
}

// NewCourseService constructs a CourseService.
func NewCourseService(db *gorm.DB) (*CourseService, error) {
	if db == nil {
		return nil, errors.New("course service: db is required")
	}
	return &CourseService{db: db}, nil
}

// Create publishes a new course owned by the given teacher.
func (s *CourseService) Create(ctx context.Context, teacherID string, input CreateCourseInput) (*models.Course, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	category, ok := models.ParseCategory(input.Category)
	if !ok {
		return nil, apperrors.NewBadRequest("unknown category")
	}
	if input.Price.IsNegative() {
		return nil, apperrors.NewBadRequest("price cannot be negative")
	}
	city := strings.TrimSpace(input.City)
	if city == "" {
		return nil, apperrors.NewBadRequest("city is required")
	}
	if input.CourseDateTime.IsZero() {
		return nil, apperrors.NewBadRequest("course date is required")
	}
	if input.MaxStudents != nil && *input.MaxStudents <= 0 {
		return nil, apperrors.NewBadRequest("max students must be positive")
	}

	course := &models.Course{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Category:       category,
		Price:          input.Price.Round(2),
		City:           city,
		CourseDateTime: input.CourseDateTime,
		Duration:       input.Duration,
		MaxStudents:    input.MaxStudents,
		TeacherID:      teacherID,
	}

	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, fmt.Errorf("course service: create: %w", err)
	}

	return s.GetByID(ctx, course.ID)
}

// GetByID loads one course with its teacher preloaded.
func (s *CourseService) GetByID(ctx context.Context, id string) (*models.Course, error) {
	ctx = ensureContext(ctx)

	var course models.Course
	if err := s.db.WithContext(ctx).Preload("Teacher").First(&course, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("course service: find course: %w", err)
	}
	return &course, nil
}

// List returns a filtered, paginated slice of the catalog together with the
// total match count.
func (s *CourseService) List(ctx context.Context, opts ListCoursesOptions) ([]models.Course, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := s.applyFilter(s.db.WithContext(ctx).Model(&models.Course{}), opts.Filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("course service: count: %w", err)
	}

	var courses []models.Course
	if err := query.
		Preload("Teacher").
		Order("courses.course_date_time ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("course service: list: %w", err)
	}

	return courses, total, nil
}

// ListByTeacher returns every course owned by the teacher.
func (s *CourseService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	ctx = ensureContext(ctx)

	var courses []models.Course
	if err := s.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("course_date_time ASC").
		Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("course service: list by teacher: %w", err)
	}
	return courses, nil
}

// Update applies mutations to an owned course.
func (s *CourseService) Update(ctx context.Context, teacherID, courseID string, input UpdateCourseInput) (*models.Course, error) {
	ctx = ensureContext(ctx)

	course, err := s.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != teacherID {
		return nil, ErrNotCourseOwner
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewBadRequest("title cannot be empty")
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		category, ok := models.ParseCategory(*input.Category)
		if !ok {
			return nil, apperrors.NewBadRequest("unknown category")
		}
		updates["category"] = category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, apperrors.NewBadRequest("price cannot be negative")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.City != nil {
		city := strings.TrimSpace(*input.City)
		if city == "" {
			return nil, apperrors.NewBadRequest("city cannot be empty")
		}
		updates["city"] = city
	}
	if input.CourseDateTime != nil {
		updates["course_date_time"] = *input.CourseDateTime
	}
	if input.Duration != nil {
		updates["duration"] = *input.Duration
	}
	if input.MaxStudents != nil {
		if *input.MaxStudents <= 0 {
			return nil, apperrors.NewBadRequest("max students must be positive")
		}
		updates["max_students"] = *input.MaxStudents
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("course service: update: %w", err)
		}
	}

	return s.GetByID(ctx, courseID)
}

// Delete removes an owned course.
func (s *CourseService) Delete(ctx context.Context, teacherID, courseID string) error {
	ctx = ensureContext(ctx)

	course, err := s.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TeacherID != teacherID {
		return ErrNotCourseOwner
	}

	if err := s.db.WithContext(ctx).Delete(course).Error; err != nil {
		return fmt.Errorf("course service: delete: %w", err)
	}
	return nil
}

// applyFilter translates CourseFilter into SQL conditions. The keyword filter
// spans title, description, city and the teacher's name, so it needs the
// users join; the remaining filters stay on the courses table.
func (s *CourseService) applyFilter(query *gorm.DB, filter CourseFilter) *gorm.DB {
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		pattern := "%" + strings.ToLower(keyword) + "%"
		query = query.
			Joins("JOIN users ON users.id = courses.teacher_id").
			Where(
				"LOWER(courses.title) LIKE ? OR LOWER(courses.description) LIKE ? OR LOWER(courses.city) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?",
				pattern, pattern, pattern, pattern, pattern,
			)
	}
	if title := strings.TrimSpace(filter.Title); title != "" {
		query = query.Where("LOWER(courses.title) LIKE ?", "%"+strings.ToLower(title)+"%")
	}
	if category, ok := models.ParseCategory(filter.Category); ok {
		query = query.Where("courses.category = ?", category)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("LOWER(courses.city) LIKE ?", "%"+strings.ToLower(city)+"%")
	}
	return query
}
