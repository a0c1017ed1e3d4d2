package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/database/testutil"
	"github.com/homelearnhq/homelearn/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t)
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		FirstName:     "Test",
		LastName:      "User",
		Email:         email,
		Password:      "$2a$10$abcdefghijklmnopqrstuv",
		Role:          role,
		VerifiedEmail: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, teacherID string, price string, startsAt time.Time, maxStudents *int) *models.Course {
	t.Helper()

	course := &models.Course{
		Title:          "Piano for beginners",
		Description:    "Learn scales and simple pieces",
		Category:       models.CategoryMusic,
		Price:          decimal.RequireFromString(price),
		City:           "Lyon",
		CourseDateTime: startsAt,
		Duration:       60,
		MaxStudents:    maxStudents,
		TeacherID:      teacherID,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func intPtr(v int) *int { return &v }
