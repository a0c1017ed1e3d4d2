package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category enumerates the subjects a course can belong to.
type Category string

const (
	CategoryMaths           Category = "MATHS"
	CategorySciences        Category = "SCIENCES"
	CategoryLanguages       Category = "LANGUAGES"
	CategoryMusic           Category = "MUSIC"
	CategoryArts            Category = "ARTS"
	CategorySport           Category = "SPORT"
	CategoryInformatique    Category = "INFORMATIQUE"
	CategorySoutienScolaire Category = "SOUTIEN_SCOLAIRE"
)

// ParseCategory normalises and validates a category string. The boolean is
// false when the value is not a known category.
func ParseCategory(value string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(value)))
	switch c {
	case CategoryMaths, CategorySciences, CategoryLanguages, CategoryMusic,
		CategoryArts, CategorySport, CategoryInformatique, CategorySoutienScolaire:
		return c, true
	}
	return "", false
}

// Course is owned by exactly one teacher.
type Course struct {
	BaseModel

	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    Category        `gorm:"not null;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	City        string          `gorm:"not null;index" json:"city"`

	CourseDateTime time.Time `gorm:"not null" json:"course_date_time"`
	// Duration is in minutes.
	Duration int `json:"duration"`
	// MaxStudents is nil for uncapped courses.
	MaxStudents *int `json:"max_students"`

	TeacherID string `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Teacher   *User  `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}
