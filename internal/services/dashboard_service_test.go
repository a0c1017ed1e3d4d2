package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
)

func seedPayment(t *testing.T, db *gorm.DB, studentID, courseID string, teacherAmount string, status models.PaymentStatus, createdAt time.Time) {
	t.Helper()

	amount := decimal.RequireFromString(teacherAmount)
	payment := &models.Payment{
		StudentID:     studentID,
		CourseID:      courseID,
		Amount:        amount.Div(decimal.RequireFromString("0.9")).Round(2),
		PlatformFee:   amount.Div(decimal.RequireFromString("9")).Round(2),
		TeacherAmount: amount,
		Currency:      "eur",
		Status:        status,
	}
	payment.CreatedAt = createdAt
	require.NoError(t, db.Create(payment).Error)
}

func TestDashboardStatsForTeacher(t *testing.T) {
	db := openTestDB(t)

	svc, err := NewDashboardService(db)
	require.NoError(t, err)

	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	rival := seedUser(t, db, "rival@example.com", models.RoleTeacher)
	s1 := seedUser(t, db, "s1@example.com", models.RoleStudent)
	s2 := seedUser(t, db, "s2@example.com", models.RoleStudent)
	s3 := seedUser(t, db, "s3@example.com", models.RoleStudent)

	course1 := seedCourse(t, db, teacher.ID, "50.00", now.Add(30*24*time.Hour), nil)
	course2 := seedCourse(t, db, teacher.ID, "20.00", now.Add(40*24*time.Hour), nil)
	rivalCourse := seedCourse(t, db, rival.ID, "80.00", now.Add(30*24*time.Hour), nil)

	seedEnrollment := func(studentID, courseID string, status models.EnrollmentStatus) {
		require.NoError(t, db.Create(&models.Enrollment{
			StudentID: studentID,
			CourseID:  courseID,
			Status:    status,
		}).Error)
	}

	seedEnrollment(s1.ID, course1.ID, models.EnrollmentActive)
	seedEnrollment(s1.ID, course2.ID, models.EnrollmentActive)
	seedEnrollment(s2.ID, course2.ID, models.EnrollmentCompleted)
	// A cancelled enrollment does not count as a student.
	seedEnrollment(s3.ID, course1.ID, models.EnrollmentCancelled)

	lastMonth := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)
	thisMonth := time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)

	seedPayment(t, db, s1.ID, course1.ID, "45.00", models.PaymentSucceeded, lastMonth)
	seedPayment(t, db, s2.ID, course2.ID, "18.00", models.PaymentSucceeded, thisMonth)
	// Refunded and pending payments are not revenue.
	seedPayment(t, db, s1.ID, course2.ID, "18.00", models.PaymentRefunded, thisMonth)
	seedPayment(t, db, s3.ID, course1.ID, "45.00", models.PaymentPending, thisMonth)
	// Another teacher's revenue stays out of these stats.
	seedPayment(t, db, s1.ID, rivalCourse.ID, "72.00", models.PaymentSucceeded, thisMonth)

	stats, err := svc.StatsForTeacher(context.Background(), teacher.ID)
	require.NoError(t, err)

	require.EqualValues(t, 2, stats.TotalCourses)
	require.EqualValues(t, 2, stats.TotalStudents)
	require.Equal(t, "63.00", stats.TotalRevenue.StringFixed(2))
	require.Equal(t, "18.00", stats.RevenueThisMonth.StringFixed(2))
}

func TestDashboardStatsEmptyTeacher(t *testing.T) {
	db := openTestDB(t)

	svc, err := NewDashboardService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)

	stats, err := svc.StatsForTeacher(context.Background(), teacher.ID)
	require.NoError(t, err)

	require.Zero(t, stats.TotalCourses)
	require.Zero(t, stats.TotalStudents)
	require.True(t, stats.TotalRevenue.IsZero())
	require.True(t, stats.RevenueThisMonth.IsZero())
}
