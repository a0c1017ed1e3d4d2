package models

// EnrollmentStatus tracks the lifecycle of a student's seat in a course.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment links one student to one course. At most one non-cancelled row
// may exist per (student, course) pair.
type Enrollment struct {
	BaseModel

	StudentID string `gorm:"type:uuid;not null;index:idx_enrollments_pair" json:"student_id"`
	Student   *User  `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	CourseID string  `gorm:"type:uuid;not null;index:idx_enrollments_pair" json:"course_id"`
	Course   *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`

	Status EnrollmentStatus `gorm:"not null;index" json:"status"`
}
