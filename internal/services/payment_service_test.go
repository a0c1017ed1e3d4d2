package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/internal/payments"
	apperrors "github.com/homelearnhq/homelearn/pkg/errors"
)

type fakeGateway struct {
	createErr   error
	retrieveErr error
	refundErr   error

	intentStatus payments.IntentStatus

	createdAmounts []int64
	refunds        int
	seq            int
}

func (g *fakeGateway) CreateIntent(_ context.Context, params payments.CreateIntentParams) (*payments.Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	g.createdAmounts = append(g.createdAmounts, payments.MinorUnits(params.Amount))
	return &payments.Intent{
		ID:           fmt.Sprintf("pi_test_%d", g.seq),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", g.seq),
		Status:       payments.IntentStatusRequiresPaymentMethod,
	}, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, intentID string) (*payments.Intent, error) {
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	status := g.intentStatus
	if status == "" {
		status = payments.IntentStatusSucceeded
	}
	return &payments.Intent{ID: intentID, Status: status}, nil
}

func (g *fakeGateway) RefundIntent(_ context.Context, intentID string) (string, error) {
	if g.refundErr != nil {
		return "", g.refundErr
	}
	g.refunds++
	return fmt.Sprintf("re_test_%d", g.refunds), nil
}

type paymentFixture struct {
	db      *gorm.DB
	gateway *fakeGateway
	svc     *PaymentService
	teacher *models.User
	student *models.User
	course  *models.Course
}

func newPaymentFixture(t *testing.T, courseStart time.Time) *paymentFixture {
	t.Helper()

	db := openTestDB(t)
	gateway := &fakeGateway{}

	enrollments, err := NewEnrollmentService(db)
	require.NoError(t, err)

	svc, err := NewPaymentService(db, gateway, enrollments, nil, "eur")
	require.NoError(t, err)

	teacher := seedUser(t, db, "teacher@example.com", models.RoleTeacher)
	student := seedUser(t, db, "student@example.com", models.RoleStudent)
	course := seedCourse(t, db, teacher.ID, "50.00", courseStart, nil)

	return &paymentFixture{
		db:      db,
		gateway: gateway,
		svc:     svc,
		teacher: teacher,
		student: student,
		course:  course,
	}
}

func TestSplitAmount(t *testing.T) {
	cases := []struct {
		amount  string
		fee     string
		teacher string
	}{
		{"50.00", "5.00", "45.00"},
		{"19.99", "2.00", "17.99"},
		{"0.01", "0.00", "0.01"},
		{"33.33", "3.33", "30.00"},
		{"100.05", "10.01", "90.04"},
	}

	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		fee, teacherShare := SplitAmount(amount)
		require.Equal(t, tc.fee, fee.StringFixed(2), "fee for %s", tc.amount)
		require.Equal(t, tc.teacher, teacherShare.StringFixed(2), "teacher share for %s", tc.amount)
		require.True(t, fee.Add(teacherShare).Equal(amount), "split of %s must be exact", tc.amount)
	}
}

func TestCreateIntentPersistsBeforeGateway(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)
	require.Equal(t, "pi_test_1_secret", result.ClientSecret)

	require.Equal(t, []int64{5000}, f.gateway.createdAmounts)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", result.Payment.ID).Error)
	require.Equal(t, models.PaymentPending, stored.Status)
	require.NotNil(t, stored.StripePaymentIntentID)
	require.Equal(t, "pi_test_1", *stored.StripePaymentIntentID)
	require.Equal(t, "5.00", stored.PlatformFee.StringFixed(2))
	require.Equal(t, "45.00", stored.TeacherAmount.StringFixed(2))
}

func TestCreateIntentGatewayFailureKeepsAuditRow(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))
	f.gateway.createErr = errors.New("gateway down")

	_, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, "student_id = ?", f.student.ID).Error)
	require.Equal(t, models.PaymentFailed, stored.Status)
	require.Nil(t, stored.StripePaymentIntentID)

	// A failed attempt does not block retrying.
	f.gateway.createErr = nil
	_, err = f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)
}

func TestCreateIntentRejectsOpenDuplicate(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	_, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.ErrorIs(t, err, ErrPaymentInProgress)
}

func TestCreateIntentRejectsSelfPurchase(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	_, err := f.svc.CreateIntent(context.Background(), f.teacher.ID, f.course.ID)
	require.ErrorIs(t, err, ErrSelfEnrollment)
}

func TestConfirmBooksSeatOnceAndIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSucceeded, confirmed.Status)
	require.NotNil(t, confirmed.EnrollmentID)

	// Re-confirming is a no-op.
	again, err := f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, *confirmed.EnrollmentID, *again.EnrollmentID)

	var count int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", f.student.ID, f.course.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestConfirmRequiresAction(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))
	f.gateway.intentStatus = payments.IntentStatusRequiresAction

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.ErrorIs(t, err, ErrPaymentActionRequired)

	var stored models.Payment
	require.NoError(t, f.db.First(&stored, "id = ?", result.Payment.ID).Error)
	require.Equal(t, models.PaymentRequiresAction, stored.Status)

	// Once the extra step is done remotely, confirming works.
	f.gateway.intentStatus = payments.IntentStatusSucceeded
	confirmed, err := f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentSucceeded, confirmed.Status)
}

func TestConfirmRejectsForeignPayment(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)

	other := seedUser(t, f.db, "other@example.com", models.RoleStudent)
	_, err = f.svc.Confirm(context.Background(), other.ID, result.Payment.ID)
	require.ErrorIs(t, err, ErrNotPaymentOwner)
}

func TestRefundFlow(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)

	refunded, err := f.svc.Refund(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)
	require.Equal(t, models.PaymentRefunded, refunded.Status)
	require.NotNil(t, refunded.StripeRefundID)

	var enrollment models.Enrollment
	require.NoError(t, f.db.First(&enrollment, "id = ?", *refunded.EnrollmentID).Error)
	require.Equal(t, models.EnrollmentCancelled, enrollment.Status)

	// A second refund attempt is rejected.
	_, err = f.svc.Refund(context.Background(), f.student.ID, result.Payment.ID)
	require.ErrorIs(t, err, ErrNotRefundable)
}

func TestRefundWindowClosed(t *testing.T) {
	// Course starts in 24h, inside the 48h cancellation window.
	f := newPaymentFixture(t, time.Now().Add(24*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)

	_, err = f.svc.Refund(context.Background(), f.student.ID, result.Payment.ID)
	require.ErrorIs(t, err, ErrRefundWindowClosed)
}

func TestRefundGatewayFailureLeavesStateUntouched(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)
	confirmed, err := f.svc.Confirm(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)

	f.gateway.refundErr = errors.New("gateway down")
	_, err = f.svc.Refund(context.Background(), f.student.ID, result.Payment.ID)
	require.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "id = ?", result.Payment.ID).Error)
	require.Equal(t, models.PaymentSucceeded, payment.Status)

	var enrollment models.Enrollment
	require.NoError(t, f.db.First(&enrollment, "id = ?", *confirmed.EnrollmentID).Error)
	require.Equal(t, models.EnrollmentActive, enrollment.Status)

	// Retry succeeds once the gateway recovers.
	f.gateway.refundErr = nil
	_, err = f.svc.Refund(context.Background(), f.student.ID, result.Payment.ID)
	require.NoError(t, err)
}

func TestRefundRejectsPendingPayment(t *testing.T) {
	f := newPaymentFixture(t, time.Now().Add(96*time.Hour))

	result, err := f.svc.CreateIntent(context.Background(), f.student.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.svc.Refund(context.Background(), f.student.ID, result.Payment.ID)
	require.ErrorIs(t, err, ErrNotRefundable)
}
