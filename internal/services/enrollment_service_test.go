package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
)

func TestEnrollmentCreateAndList(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)
	course := seedCourse(t, db, teacher.ID, "40.00", time.Now().Add(96*time.Hour), nil)

	enrollment, err := svc.Create(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentActive, enrollment.Status)

	list, err := svc.ListForStudent(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	require.Equal(t, course.ID, list[0].Course.ID)
}

func TestEnrollmentDuplicateRejected(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)
	course := seedCourse(t, db, teacher.ID, "40.00", time.Now().Add(96*time.Hour), nil)

	_, err = svc.Create(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), student.ID, course.ID)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollmentCancelledRowDoesNotBlock(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)
	course := seedCourse(t, db, teacher.ID, "40.00", time.Now().Add(96*time.Hour), nil)

	first, err := svc.Create(context.Background(), student.ID, course.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(first).Update("status", models.EnrollmentCancelled).Error)

	// After cancelling, the student can book the course again.
	_, err = svc.Create(context.Background(), student.ID, course.ID)
	require.NoError(t, err)
}

func TestEnrollmentConcurrentDuplicateMapsToConflict(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)
	course := seedCourse(t, db, teacher.ID, "40.00", time.Now().Add(96*time.Hour), nil)

	// Slip a competing booking in after the duplicate check has passed but
	// before the insert, the way a simultaneous request would. The partial
	// unique index then rejects the second row.
	var (
		once    sync.Once
		raceErr error
	)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("competing_enrollment", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Enrollment); !ok {
			return
		}
		once.Do(func() {
			now := time.Now()
			raceErr = tx.Session(&gorm.Session{NewDB: true}).Exec(
				"INSERT INTO enrollments (id, created_at, updated_at, student_id, course_id, status) VALUES (?, ?, ?, ?, ?, ?)",
				uuid.NewString(), now, now, student.ID, course.ID, string(models.EnrollmentActive),
			).Error
		})
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove("competing_enrollment") })

	_, err = svc.Create(context.Background(), student.ID, course.ID)
	require.NoError(t, raceErr)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)

	var rows int64
	require.NoError(t, db.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", student.ID, course.ID).
		Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestEnrollmentSelfEnrollRejected(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	course := seedCourse(t, db, teacher.ID, "40.00", time.Now().Add(96*time.Hour), nil)

	_, err = svc.Create(context.Background(), teacher.ID, course.ID)
	require.ErrorIs(t, err, ErrSelfEnrollment)
}

func TestEnrollmentCapacity(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	course := seedCourse(t, db, teacher.ID, "40.00", time.Now().Add(96*time.Hour), intPtr(2))

	for i, email := range []string{"s1@example.com", "s2@example.com"} {
		student := seedUser(t, db, email, models.RoleStudent)
		_, err := svc.Create(context.Background(), student.ID, course.ID)
		require.NoError(t, err, "enrollment %d", i+1)
	}

	extra := seedUser(t, db, "s3@example.com", models.RoleStudent)
	_, err = svc.Create(context.Background(), extra.ID, course.ID)
	require.ErrorIs(t, err, ErrCourseFull)

	// A cancelled seat frees capacity.
	var enrollment models.Enrollment
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&enrollment).Error)
	require.NoError(t, db.Model(&enrollment).Update("status", models.EnrollmentCancelled).Error)

	_, err = svc.Create(context.Background(), extra.ID, course.ID)
	require.NoError(t, err)
}

func TestEnrollmentUnknownCourse(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewEnrollmentService(db)
	require.NoError(t, err)

	student := seedUser(t, db, "student@example.com", models.RoleStudent)

	_, err = svc.Create(context.Background(), student.ID, "7b2e9f80-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, ErrCourseNotFound)
}
