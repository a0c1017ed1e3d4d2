package models

// Role distinguishes students from teachers.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

// Valid reports whether the role is one of the supported values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// User describes a platform account. Password is empty for accounts created
// through OAuth login.
type User struct {
	BaseModel

	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `json:"-"`
	Role      Role   `gorm:"not null" json:"role"`

	// Bio is only meaningful for teachers.
	Bio string `json:"bio,omitempty"`

	VerifiedEmail bool `gorm:"default:false" json:"verified_email"`
}

// DisplayName returns the user's full name for tokens and email bodies.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
