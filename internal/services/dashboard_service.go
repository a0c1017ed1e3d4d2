package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
)

// DashboardStats summarises a teacher's activity on the platform. Revenue
// figures are the teacher's share of succeeded payments, net of the platform
// fee.
type DashboardStats struct {
	TotalCourses     int64           `json:"total_courses"`
	TotalStudents    int64           `json:"total_students"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
}

// DashboardService aggregates teacher statistics.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(db *gorm.DB) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{db: db, now: time.Now}, nil
}

// StatsForTeacher computes the dashboard numbers for one teacher.
func (s *DashboardService) StatsForTeacher(ctx context.Context, teacherID string) (*DashboardStats, error) {
	ctx = ensureContext(ctx)

	stats := &DashboardStats{
		TotalRevenue:     decimal.Zero,
		RevenueThisMonth: decimal.Zero,
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("teacher_id = ?", teacherID).
		Count(&stats.TotalCourses).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count courses: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("courses.teacher_id = ? AND enrollments.status IN ?", teacherID,
			[]models.EnrollmentStatus{models.EnrollmentActive, models.EnrollmentCompleted}).
		Distinct("enrollments.student_id").
		Count(&stats.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: count students: %w", err)
	}

	total, err := s.sumRevenue(ctx, teacherID, time.Time{})
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = total

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthly, err := s.sumRevenue(ctx, teacherID, monthStart)
	if err != nil {
		return nil, err
	}
	stats.RevenueThisMonth = monthly

	return stats, nil
}

func (s *DashboardService) sumRevenue(ctx context.Context, teacherID string, since time.Time) (decimal.Decimal, error) {
	// Refunded payments no longer count as revenue.
	query := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Joins("JOIN courses ON courses.id = payments.course_id").
		Where("courses.teacher_id = ? AND payments.status = ?", teacherID, models.PaymentSucceeded)

	if !since.IsZero() {
		query = query.Where("payments.created_at >= ?", since)
	}

	var total decimal.NullDecimal
	if err := query.
		Select("SUM(payments.teacher_amount)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, fmt.Errorf("dashboard service: sum revenue: %w", err)
	}

	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
