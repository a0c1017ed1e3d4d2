package maintenance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/database/testutil"
	"github.com/homelearnhq/homelearn/internal/models"
)

func seedVerification(t *testing.T, db *gorm.DB, userID, hash string, expiresAt time.Time, verifiedAt *time.Time) *models.EmailVerification {
	t.Helper()

	verification := &models.EmailVerification{
		UserID:     userID,
		TokenHash:  hash,
		ExpiresAt:  expiresAt,
		VerifiedAt: verifiedAt,
	}
	require.NoError(t, db.Create(verification).Error)
	return verification
}

func seedOpenPayment(t *testing.T, db *gorm.DB, studentID, courseID string, status models.PaymentStatus, createdAt time.Time) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		StudentID:     studentID,
		CourseID:      courseID,
		Amount:        decimal.RequireFromString("50.00"),
		PlatformFee:   decimal.RequireFromString("5.00"),
		TeacherAmount: decimal.RequireFromString("45.00"),
		Currency:      "eur",
		Status:        status,
	}
	payment.CreatedAt = createdAt
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func seedParties(t *testing.T, db *gorm.DB) (student, teacher *models.User, course *models.Course) {
	t.Helper()

	teacher = &models.User{
		FirstName:     "Test",
		LastName:      "Teacher",
		Email:         "teacher@example.com",
		Password:      "$2a$10$abcdefghijklmnopqrstuv",
		Role:          models.RoleTeacher,
		VerifiedEmail: true,
	}
	require.NoError(t, db.Create(teacher).Error)

	student = &models.User{
		FirstName:     "Test",
		LastName:      "Student",
		Email:         "student@example.com",
		Password:      "$2a$10$abcdefghijklmnopqrstuv",
		Role:          models.RoleStudent,
		VerifiedEmail: true,
	}
	require.NoError(t, db.Create(student).Error)

	course = &models.Course{
		Title:          "Piano for beginners",
		Category:       models.CategoryMusic,
		Price:          decimal.RequireFromString("50.00"),
		City:           "Lyon",
		CourseDateTime: time.Now().Add(30 * 24 * time.Hour),
		Duration:       60,
		TeacherID:      teacher.ID,
	}
	require.NoError(t, db.Create(course).Error)
	return student, teacher, course
}

func TestCleanupVerificationTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	student, _, _ := seedParties(t, db)

	now := time.Now()
	usedAt := now.Add(-time.Hour)

	expired := seedVerification(t, db, student.ID, "hash-expired", now.Add(-time.Minute), nil)
	used := seedVerification(t, db, student.ID, "hash-used", now.Add(23*time.Hour), &usedAt)
	live := seedVerification(t, db, student.ID, "hash-live", now.Add(23*time.Hour), nil)

	removed, err := CleanupVerificationTokens(context.Background(), db, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	var remaining []models.EmailVerification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, live.ID, remaining[0].ID)

	for _, gone := range []*models.EmailVerification{expired, used} {
		err := db.First(&models.EmailVerification{}, "id = ?", gone.ID).Error
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}
}

func TestCancelStalePayments(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	student, _, course := seedParties(t, db)

	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	// The partial unique index permits one open payment per student and
	// course, so spread the rows over distinct students.
	otherStudents := make([]*models.User, 3)
	for i := range otherStudents {
		user := &models.User{
			FirstName:     "Extra",
			LastName:      fmt.Sprintf("Student%d", i),
			Email:         fmt.Sprintf("extra%d@example.com", i),
			Password:      "$2a$10$abcdefghijklmnopqrstuv",
			Role:          models.RoleStudent,
			VerifiedEmail: true,
		}
		require.NoError(t, db.Create(user).Error)
		otherStudents[i] = user
	}

	stalePending := seedOpenPayment(t, db, student.ID, course.ID, models.PaymentPending, now.Add(-48*time.Hour))
	staleAction := seedOpenPayment(t, db, otherStudents[0].ID, course.ID, models.PaymentRequiresAction, now.Add(-25*time.Hour))
	freshPending := seedOpenPayment(t, db, otherStudents[1].ID, course.ID, models.PaymentPending, now.Add(-time.Hour))
	succeeded := seedOpenPayment(t, db, otherStudents[2].ID, course.ID, models.PaymentSucceeded, now.Add(-48*time.Hour))

	cancelled, err := CancelStalePayments(context.Background(), db, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 2, cancelled)

	statusOf := func(id string) models.PaymentStatus {
		var payment models.Payment
		require.NoError(t, db.First(&payment, "id = ?", id).Error)
		return payment.Status
	}

	require.Equal(t, models.PaymentCanceled, statusOf(stalePending.ID))
	require.Equal(t, models.PaymentCanceled, statusOf(staleAction.ID))
	require.Equal(t, models.PaymentPending, statusOf(freshPending.ID))
	require.Equal(t, models.PaymentSucceeded, statusOf(succeeded.ID))
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	student, _, course := seedParties(t, db)

	now := time.Now()
	seedVerification(t, db, student.ID, "hash-expired", now.Add(-time.Minute), nil)
	seedOpenPayment(t, db, student.ID, course.ID, models.PaymentPending, now.Add(-48*time.Hour))

	cleaner := NewCleaner(db, WithNow(func() time.Time { return now }))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var tokens int64
	require.NoError(t, db.Model(&models.EmailVerification{}).Count(&tokens).Error)
	require.Zero(t, tokens)

	var payment models.Payment
	require.NoError(t, db.First(&payment, "student_id = ?", student.ID).Error)
	require.Equal(t, models.PaymentCanceled, payment.Status)
}
