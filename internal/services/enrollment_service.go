package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/metrics"
)

var (
	// ErrAlreadyEnrolled rejects a second live enrollment for the same course.
	ErrAlreadyEnrolled = apperrors.NewConflict("ALREADY_ENROLLED", "You are already enrolled in this course")
	// ErrSelfEnrollment rejects teachers booking their own course.
	ErrSelfEnrollment = apperrors.NewConflict("SELF_ENROLLMENT", "You cannot enroll in your own course")
	// ErrCourseFull rejects enrollments once the seat cap is reached.
	ErrCourseFull = apperrors.NewConflict("COURSE_FULL", "This course has no seats left")
)

// EnrollmentService books students into courses and answers enrollment queries.
type EnrollmentService struct {
	db *gorm.DB
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(db *gorm.DB) (*EnrollmentService, error) {
	if db == nil {
		return nil, errors.New("enrollment service: db is required")
	}
	return &EnrollmentService{db: db}, nil
}

// Create books the student into the course. All checks and the insert run in
// one transaction; a partial unique index backs the duplicate check for
// drivers that support it.
func (s *EnrollmentService) Create(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	ctx = ensureContext(ctx)

	var enrollment *models.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.createInTx(tx, studentID, courseID)
		if err != nil {
			return err
		}
		enrollment = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.EnrollmentsCreated.Inc()
	return enrollment, nil
}

// createInTx performs the enrollment checks and insert inside the caller's
// transaction. The payment confirmation flow shares it so a booked seat and
// the succeeded payment commit together.
func (s *EnrollmentService) createInTx(tx *gorm.DB, studentID, courseID string) (*models.Enrollment, error) {
	var course models.Course
	if err := tx.First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("enrollment service: find course: %w", err)
	}

	if course.TeacherID == studentID {
		return nil, ErrSelfEnrollment
	}

	var existing int64
	if err := tx.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND status IN ?", studentID, courseID,
			[]models.EnrollmentStatus{models.EnrollmentActive, models.EnrollmentCompleted}).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("enrollment service: duplicate check: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyEnrolled
	}

	if course.MaxStudents != nil {
		var active int64
		if err := tx.Model(&models.Enrollment{}).
			Where("course_id = ? AND status = ?", courseID, models.EnrollmentActive).
			Count(&active).Error; err != nil {
			return nil, fmt.Errorf("enrollment service: capacity check: %w", err)
		}
		if active >= int64(*course.MaxStudents) {
			return nil, ErrCourseFull
		}
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		Status:    models.EnrollmentActive,
	}
	if err := tx.Create(enrollment).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("enrollment service: create: %w", err)
	}

	return enrollment, nil
}

// ListForStudent returns the student's enrollments with course and teacher
// preloaded, most recent first.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	ctx = ensureContext(ctx)

	var enrollments []models.Enrollment
	if err := s.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Teacher").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("enrollment service: list for student: %w", err)
	}
	return enrollments, nil
}

// GetByID loads one enrollment.
func (s *EnrollmentService) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	ctx = ensureContext(ctx)

	var enrollment models.Enrollment
	if err := s.db.WithContext(ctx).
		Preload("Course").
		First(&enrollment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("enrollment service: find: %w", err)
	}
	return &enrollment, nil
}
