package models

import "github.com/shopspring/decimal"

// PaymentStatus mirrors the lifecycle of the remote payment intent.
type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "PENDING"
	PaymentRequiresAction PaymentStatus = "REQUIRES_ACTION"
	PaymentSucceeded      PaymentStatus = "SUCCEEDED"
	PaymentRefunded       PaymentStatus = "REFUNDED"
	PaymentFailed         PaymentStatus = "FAILED"
	PaymentCanceled       PaymentStatus = "CANCELED"
)

// Payment mirrors one external payment intent locally. The row is created
// before the gateway is called so a local record always exists, and is kept
// for audit even when the gateway call fails.
type Payment struct {
	BaseModel

	// StripePaymentIntentID is nil until the gateway accepted the intent.
	StripePaymentIntentID *string `gorm:"uniqueIndex" json:"stripe_payment_intent_id,omitempty"`
	StripeRefundID        *string `json:"stripe_refund_id,omitempty"`

	StudentID string `gorm:"type:uuid;not null;index" json:"student_id"`
	Student   *User  `gorm:"foreignKey:StudentID" json:"-"`

	CourseID string  `gorm:"type:uuid;not null;index" json:"course_id"`
	Course   *Course `gorm:"foreignKey:CourseID" json:"-"`

	// EnrollmentID links the enrollment created by a succeeded payment.
	EnrollmentID *string     `gorm:"type:uuid;uniqueIndex" json:"enrollment_id,omitempty"`
	Enrollment   *Enrollment `gorm:"foreignKey:EnrollmentID" json:"-"`

	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PlatformFee   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"platform_fee"`
	TeacherAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"teacher_amount"`
	Currency      string          `gorm:"not null;size:10" json:"currency"`

	Status PaymentStatus `gorm:"not null;size:30;index" json:"status"`
}
