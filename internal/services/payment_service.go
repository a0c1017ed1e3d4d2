package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/internal/payments"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
	"github.com/homelearnhq/homelearn/pkg/logger"
	"github.com/homelearnhq/homelearn/pkg/metrics"
)

// Students can cancel a booking until 48 hours before the course starts.
const refundWindow = 48 * time.Hour

// platformFeeRate is the share of every course price kept by the platform.
var platformFeeRate = decimal.RequireFromString("0.10")

var (
	// ErrPaymentNotFound indicates the payment does not exist.
	ErrPaymentNotFound = apperrors.New("PAYMENT_NOT_FOUND", "Payment not found", http.StatusNotFound)
	// ErrNotPaymentOwner rejects access to somebody else's payment.
	ErrNotPaymentOwner = apperrors.New("NOT_PAYMENT_OWNER", "This payment belongs to another account", http.StatusForbidden)
	// ErrPaymentInProgress rejects opening a second intent for the same course.
	ErrPaymentInProgress = apperrors.NewConflict("PAYMENT_IN_PROGRESS", "A payment for this course is already in progress")
	// ErrPaymentActionRequired tells the client to finish 3DS or similar.
	ErrPaymentActionRequired = apperrors.NewConflict("PAYMENT_ACTION_REQUIRED", "The payment requires an additional confirmation step")
	// ErrPaymentUnexpectedState covers remote states we cannot act on.
	ErrPaymentUnexpectedState = apperrors.NewConflict("PAYMENT_UNEXPECTED_STATE", "The payment is not in a confirmable state")
	// ErrNotRefundable rejects refunds for payments that never succeeded.
	ErrNotRefundable = apperrors.NewConflict("PAYMENT_NOT_REFUNDABLE", "This payment cannot be refunded")
	// ErrRefundWindowClosed rejects cancellations within 48h of the course.
	ErrRefundWindowClosed = apperrors.NewConflict("REFUND_WINDOW_CLOSED", "The course starts too soon to cancel this booking")
)

// PaymentIntentResult is returned when an intent is opened; ClientSecret is
// what the browser hands to the card form.
type PaymentIntentResult struct {
	Payment      *models.Payment
	ClientSecret string
}

// PaymentService drives the payment lifecycle from intent to refund.
type PaymentService struct {
	db          *gorm.DB
	gateway     payments.Gateway
	enrollments *EnrollmentService
	emails      *EmailService
	currency    string
	now         func() time.Time
	log         *zap.Logger
}

// PaymentOption customises the PaymentService.
type PaymentOption func(*PaymentService)

// WithPaymentClock injects a custom time source.
func WithPaymentClock(clock func() time.Time) PaymentOption {
	return func(s *PaymentService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewPaymentService constructs a PaymentService. The email service may be nil;
// notifications are then skipped.
func NewPaymentService(db *gorm.DB, gateway payments.Gateway, enrollments *EnrollmentService, emails *EmailService, currency string, opts ...PaymentOption) (*PaymentService, error) {
	if db == nil {
		return nil, errors.New("payment service: db is required")
	}
	if gateway == nil {
		return nil, errors.New("payment service: gateway is required")
	}
	if enrollments == nil {
		return nil, errors.New("payment service: enrollment service is required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "eur"
	}

	service := &PaymentService{
		db:          db,
		gateway:     gateway,
		enrollments: enrollments,
		emails:      emails,
		currency:    currency,
		now:         time.Now,
		log:         logger.WithModule("payments"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// SplitAmount computes the platform fee and the teacher's share for a course
// price. The fee is rounded half up to two decimals and the teacher receives
// the exact remainder, so fee plus teacher share always equals the amount.
func SplitAmount(amount decimal.Decimal) (fee, teacherShare decimal.Decimal) {
	fee = amount.Mul(platformFeeRate).Round(2)
	teacherShare = amount.Sub(fee)
	return fee, teacherShare
}

// CreateIntent validates the booking, persists a PENDING payment row and opens
// a payment intent at the gateway. The local row exists before the gateway is
// called so every attempt leaves a trace, including failed ones.
func (s *PaymentService) CreateIntent(ctx context.Context, studentID, courseID string) (*PaymentIntentResult, error) {
	ctx = ensureContext(ctx)

	var course models.Course
	if err := s.db.WithContext(ctx).Preload("Teacher").First(&course, "id = ?", courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("payment service: find course: %w", err)
	}

	if course.TeacherID == studentID {
		return nil, ErrSelfEnrollment
	}

	var student models.User
	if err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("payment service: find student: %w", err)
	}

	amount := course.Price.Round(2)
	fee, teacherShare := SplitAmount(amount)

	payment := &models.Payment{
		StudentID:     studentID,
		CourseID:      courseID,
		Amount:        amount,
		PlatformFee:   fee,
		TeacherAmount: teacherShare,
		Currency:      s.currency,
		Status:        models.PaymentPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var enrolled int64
		if err := tx.Model(&models.Enrollment{}).
			Where("student_id = ? AND course_id = ? AND status IN ?", studentID, courseID,
				[]models.EnrollmentStatus{models.EnrollmentActive, models.EnrollmentCompleted}).
			Count(&enrolled).Error; err != nil {
			return fmt.Errorf("enrollment check: %w", err)
		}
		if enrolled > 0 {
			return ErrAlreadyEnrolled
		}

		var open int64
		if err := tx.Model(&models.Payment{}).
			Where("student_id = ? AND course_id = ? AND status IN ?", studentID, courseID,
				[]models.PaymentStatus{models.PaymentPending, models.PaymentRequiresAction}).
			Count(&open).Error; err != nil {
			return fmt.Errorf("open payment check: %w", err)
		}
		if open > 0 {
			return ErrPaymentInProgress
		}

		if err := tx.Create(payment).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrPaymentInProgress
			}
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("payment service: %w", err)
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.CreateIntentParams{
		Amount:       amount,
		Currency:     s.currency,
		ReceiptEmail: student.Email,
		StudentID:    studentID,
		CourseID:     courseID,
		PaymentID:    payment.ID,
	})
	if err != nil {
		s.log.Error("gateway create intent failed",
			zap.String("payment_id", payment.ID),
			zap.String("course_id", courseID),
			zap.Error(err))
		// Keep the row for audit but close it out.
		if dbErr := s.db.WithContext(ctx).Model(payment).
			Update("status", models.PaymentFailed).Error; dbErr != nil {
			s.log.Error("marking payment failed", zap.String("payment_id", payment.ID), zap.Error(dbErr))
		}
		metrics.PaymentsProcessed.WithLabelValues("failed").Inc()
		return nil, apperrors.ErrGatewayUnavailable
	}

	if err := s.db.WithContext(ctx).Model(payment).
		Update("stripe_payment_intent_id", intent.ID).Error; err != nil {
		return nil, fmt.Errorf("payment service: store intent id: %w", err)
	}
	payment.StripePaymentIntentID = &intent.ID

	metrics.PaymentsProcessed.WithLabelValues("created").Inc()
	return &PaymentIntentResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// Confirm checks the remote intent state and, on success, books the seat and
// marks the payment SUCCEEDED in one transaction. Confirming an already
// succeeded payment is a no-op returning the existing state.
func (s *PaymentService) Confirm(ctx context.Context, studentID, paymentID string) (*models.Payment, error) {
	ctx = ensureContext(ctx)

	payment, err := s.getOwned(ctx, studentID, paymentID)
	if err != nil {
		return nil, err
	}

	// Idempotent fast path: the seat is already booked.
	if payment.Status == models.PaymentSucceeded && payment.EnrollmentID != nil {
		return payment, nil
	}

	if payment.StripePaymentIntentID == nil {
		return nil, ErrPaymentUnexpectedState
	}
	if payment.Status != models.PaymentPending && payment.Status != models.PaymentRequiresAction {
		return nil, ErrPaymentUnexpectedState
	}

	intent, err := s.gateway.RetrieveIntent(ctx, *payment.StripePaymentIntentID)
	if err != nil {
		s.log.Error("gateway retrieve intent failed",
			zap.String("payment_id", payment.ID), zap.Error(err))
		return nil, apperrors.ErrGatewayUnavailable
	}

	switch intent.Status {
	case payments.IntentStatusSucceeded:
		// fall through to booking below
	case payments.IntentStatusRequiresAction:
		if err := s.db.WithContext(ctx).Model(payment).
			Update("status", models.PaymentRequiresAction).Error; err != nil {
			return nil, fmt.Errorf("payment service: mark requires action: %w", err)
		}
		payment.Status = models.PaymentRequiresAction
		return nil, ErrPaymentActionRequired
	default:
		return nil, ErrPaymentUnexpectedState
	}

	var enrollment *models.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.enrollments.createInTx(tx, payment.StudentID, payment.CourseID)
		if err != nil {
			return err
		}
		enrollment = created

		if err := tx.Model(payment).Updates(map[string]any{
			"status":        models.PaymentSucceeded,
			"enrollment_id": enrollment.ID,
		}).Error; err != nil {
			return fmt.Errorf("mark succeeded: %w", err)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("payment service: confirm: %w", err)
	}

	payment.Status = models.PaymentSucceeded
	payment.EnrollmentID = &enrollment.ID
	metrics.PaymentsProcessed.WithLabelValues("succeeded").Inc()
	metrics.EnrollmentsCreated.Inc()

	s.notifyConfirmed(ctx, payment)
	return payment, nil
}

// Refund cancels a booking. The gateway refund runs first; only when the
// money is on its way back do the local payment and enrollment flip state, so
// a gateway failure leaves everything untouched and retryable.
func (s *PaymentService) Refund(ctx context.Context, studentID, paymentID string) (*models.Payment, error) {
	ctx = ensureContext(ctx)

	payment, err := s.getOwned(ctx, studentID, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentSucceeded || payment.StripePaymentIntentID == nil || payment.EnrollmentID == nil {
		return nil, ErrNotRefundable
	}

	var enrollment models.Enrollment
	if err := s.db.WithContext(ctx).First(&enrollment, "id = ?", *payment.EnrollmentID).Error; err != nil {
		return nil, fmt.Errorf("payment service: find enrollment: %w", err)
	}
	if enrollment.Status == models.EnrollmentCancelled {
		return nil, ErrNotRefundable
	}

	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", payment.CourseID).Error; err != nil {
		return nil, fmt.Errorf("payment service: find course: %w", err)
	}
	if course.CourseDateTime.Before(s.now().Add(refundWindow)) {
		return nil, ErrRefundWindowClosed
	}

	refundID, err := s.gateway.RefundIntent(ctx, *payment.StripePaymentIntentID)
	if err != nil {
		s.log.Error("gateway refund failed",
			zap.String("payment_id", payment.ID), zap.Error(err))
		return nil, apperrors.ErrGatewayUnavailable
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(payment).Updates(map[string]any{
			"status":           models.PaymentRefunded,
			"stripe_refund_id": refundID,
		}).Error; err != nil {
			return fmt.Errorf("mark refunded: %w", err)
		}
		if err := tx.Model(&enrollment).
			Update("status", models.EnrollmentCancelled).Error; err != nil {
			return fmt.Errorf("cancel enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("payment service: refund: %w", err)
	}

	payment.Status = models.PaymentRefunded
	payment.StripeRefundID = &refundID
	metrics.PaymentsProcessed.WithLabelValues("refunded").Inc()

	s.notifyRefunded(ctx, payment)
	return payment, nil
}

// ListForStudent returns the student's payments, most recent first.
func (s *PaymentService) ListForStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	ctx = ensureContext(ctx)

	var list []models.Payment
	if err := s.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("payment service: list: %w", err)
	}
	return list, nil
}

func (s *PaymentService) getOwned(ctx context.Context, studentID, paymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment service: find payment: %w", err)
	}
	if payment.StudentID != studentID {
		return nil, ErrNotPaymentOwner
	}
	return &payment, nil
}

func (s *PaymentService) notifyConfirmed(ctx context.Context, payment *models.Payment) {
	if s.emails == nil {
		return
	}

	student, course, teacher, err := s.loadParties(ctx, payment)
	if err != nil {
		s.log.Warn("loading payment parties for email", zap.String("payment_id", payment.ID), zap.Error(err))
		return
	}

	s.emails.SendPaymentReceipt(student, course, payment)
	s.emails.SendEnrollmentNotice(teacher, student, course)
}

func (s *PaymentService) notifyRefunded(ctx context.Context, payment *models.Payment) {
	if s.emails == nil {
		return
	}

	student, course, _, err := s.loadParties(ctx, payment)
	if err != nil {
		s.log.Warn("loading payment parties for email", zap.String("payment_id", payment.ID), zap.Error(err))
		return
	}

	s.emails.SendRefundConfirmation(student, course, payment)
}

func (s *PaymentService) loadParties(ctx context.Context, payment *models.Payment) (*models.User, *models.Course, *models.User, error) {
	var student models.User
	if err := s.db.WithContext(ctx).First(&student, "id = ?", payment.StudentID).Error; err != nil {
		return nil, nil, nil, err
	}

	var course models.Course
	if err := s.db.WithContext(ctx).Preload("Teacher").First(&course, "id = ?", payment.CourseID).Error; err != nil {
		return nil, nil, nil, err
	}

	teacher := course.Teacher
	if teacher == nil {
		var owner models.User
		if err := s.db.WithContext(ctx).First(&owner, "id = ?", course.TeacherID).Error; err != nil {
			return nil, nil, nil, err
		}
		teacher = &owner
	}

	return &student, &course, teacher, nil
}
