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

func newCourseService(t *testing.T) (*gorm.DB, *CourseService) {
	t.Helper()

	db := openTestDB(t)
	svc, err := NewCourseService(db)
	require.NoError(t, err)
	return db, svc
}

func createCourse(t *testing.T, svc *CourseService, teacherID string, input CreateCourseInput) *models.Course {
	t.Helper()

	if input.Price.IsZero() {
		input.Price = decimal.RequireFromString("40.00")
	}
	if input.CourseDateTime.IsZero() {
		input.CourseDateTime = time.Now().Add(7 * 24 * time.Hour)
	}
	if input.Duration == 0 {
		input.Duration = 60
	}

	course, err := svc.Create(context.Background(), teacherID, input)
	require.NoError(t, err)
	return course
}

func TestCourseCreateAndGet(t *testing.T) {
	db, svc := newCourseService(t)
	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)

	course := createCourse(t, svc, teacher.ID, CreateCourseInput{
		Title:       "  Piano for beginners  ",
		Description: "Weekly piano lessons",
		Category:    "music",
		City:        "Lyon",
		Price:       decimal.RequireFromString("45.50"),
		MaxStudents: intPtr(8),
	})

	require.Equal(t, "Piano for beginners", course.Title)
	require.Equal(t, models.CategoryMusic, course.Category)
	require.Equal(t, "45.50", course.Price.StringFixed(2))
	require.NotNil(t, course.Teacher)
	require.Equal(t, teacher.ID, course.Teacher.ID)

	loaded, err := svc.GetByID(context.Background(), course.ID)
	require.NoError(t, err)
	require.Equal(t, course.ID, loaded.ID)

	_, err = svc.GetByID(context.Background(), "deadbeef-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseCreateValidation(t *testing.T) {
	db, svc := newCourseService(t)
	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)

	valid := CreateCourseInput{
		Title:          "Guitar",
		Category:       "MUSIC",
		City:           "Paris",
		Price:          decimal.RequireFromString("30.00"),
		CourseDateTime: time.Now().Add(48 * time.Hour),
		Duration:       60,
	}

	broken := valid
	broken.Title = "   "
	_, err := svc.Create(context.Background(), teacher.ID, broken)
	require.Error(t, err)

	broken = valid
	broken.Category = "KNITTING"
	_, err = svc.Create(context.Background(), teacher.ID, broken)
	require.Error(t, err)

	broken = valid
	broken.Price = decimal.RequireFromString("-1")
	_, err = svc.Create(context.Background(), teacher.ID, broken)
	require.Error(t, err)

	broken = valid
	broken.MaxStudents = intPtr(0)
	_, err = svc.Create(context.Background(), teacher.ID, broken)
	require.Error(t, err)
}

func TestCourseListFilters(t *testing.T) {
	db, svc := newCourseService(t)
	martin := seedUser(t, db, "martin@example.com", models.RoleTeacher)
	dupont := seedUser(t, db, "dupont@example.com", models.RoleTeacher)
	require.NoError(t, db.Model(martin).Update("last_name", "Martin").Error)
	require.NoError(t, db.Model(dupont).Update("last_name", "Dupont").Error)

	createCourse(t, svc, martin.ID, CreateCourseInput{
		Title: "Algebra fundamentals", Category: "MATHS", City: "Paris",
	})
	createCourse(t, svc, martin.ID, CreateCourseInput{
		Title: "Piano for beginners", Category: "MUSIC", City: "Lyon",
	})
	createCourse(t, svc, dupont.ID, CreateCourseInput{
		Title: "Conversational English", Category: "LANGUAGES", City: "Paris",
	})

	listIDs := func(filter CourseFilter) []string {
		courses, _, err := svc.List(context.Background(), ListCoursesOptions{Filter: filter})
		require.NoError(t, err)
		ids := make([]string, 0, len(courses))
		for _, c := range courses {
			ids = append(ids, c.Title)
		}
		return ids
	}

	require.Len(t, listIDs(CourseFilter{}), 3)
	require.Equal(t, []string{"Piano for beginners"}, listIDs(CourseFilter{Title: "piano"}))
	require.Equal(t, []string{"Algebra fundamentals"}, listIDs(CourseFilter{Category: "maths"}))
	require.Len(t, listIDs(CourseFilter{City: "paris"}), 2)

	// Keyword spans title, description, city and the teacher's name.
	require.Len(t, listIDs(CourseFilter{Keyword: "martin"}), 2)
	require.Equal(t, []string{"Conversational English"}, listIDs(CourseFilter{Keyword: "english"}))

	// Filters combine conjunctively.
	require.Equal(t, []string{"Algebra fundamentals"}, listIDs(CourseFilter{Keyword: "martin", City: "paris"}))
	require.Empty(t, listIDs(CourseFilter{Keyword: "martin", Category: "LANGUAGES"}))
}

func TestCourseListPagination(t *testing.T) {
	db, svc := newCourseService(t)
	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)

	start := time.Now().Add(24 * time.Hour)
	for i := 0; i < 5; i++ {
		createCourse(t, svc, teacher.ID, CreateCourseInput{
			Title:          "Course",
			Category:       "MATHS",
			City:           "Paris",
			CourseDateTime: start.Add(time.Duration(i) * time.Hour),
		})
	}

	first, total, err := svc.List(context.Background(), ListCoursesOptions{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, first, 2)

	third, total, err := svc.List(context.Background(), ListCoursesOptions{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, third, 1)

	// Soonest course first.
	require.True(t, first[0].CourseDateTime.Before(first[1].CourseDateTime))
}

func TestCourseUpdateAndDeleteOwnerOnly(t *testing.T) {
	db, svc := newCourseService(t)
	owner := seedUser(t, db, "owner@example.com", models.RoleTeacher)
	other := seedUser(t, db, "other@example.com", models.RoleTeacher)

	course := createCourse(t, svc, owner.ID, CreateCourseInput{
		Title: "Drawing", Category: "ARTS", City: "Nice",
	})

	newTitle := "Figure drawing"
	newPrice := decimal.RequireFromString("55.00")
	updated, err := svc.Update(context.Background(), owner.ID, course.ID, UpdateCourseInput{
		Title: &newTitle,
		Price: &newPrice,
	})
	require.NoError(t, err)
	require.Equal(t, "Figure drawing", updated.Title)
	require.Equal(t, "55.00", updated.Price.StringFixed(2))
	require.Equal(t, "Nice", updated.City)

	_, err = svc.Update(context.Background(), other.ID, course.ID, UpdateCourseInput{Title: &newTitle})
	require.ErrorIs(t, err, ErrNotCourseOwner)

	err = svc.Delete(context.Background(), other.ID, course.ID)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	require.NoError(t, svc.Delete(context.Background(), owner.ID, course.ID))
	_, err = svc.GetByID(context.Background(), course.ID)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseListByTeacher(t *testing.T) {
	db, svc := newCourseService(t)
	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	other := seedUser(t, db, "other@example.com", models.RoleTeacher)

	createCourse(t, svc, teacher.ID, CreateCourseInput{Title: "A", Category: "MATHS", City: "Paris"})
	createCourse(t, svc, teacher.ID, CreateCourseInput{Title: "B", Category: "MATHS", City: "Paris"})
	createCourse(t, svc, other.ID, CreateCourseInput{Title: "C", Category: "MATHS", City: "Paris"})

	mine, err := svc.ListByTeacher(context.Background(), teacher.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
}
