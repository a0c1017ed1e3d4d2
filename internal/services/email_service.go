package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/pkg/logger"
	"github.com/homelearnhq/homelearn/pkg/mail"
)

const (
	defaultEmailQueueSize   = 128
	defaultEmailSendTimeout = 30 * time.Second
)

// EmailService delivers transactional email off the request path. Messages
// are queued onto a buffered channel and sent by a background worker; a full
// queue drops the message with a warning rather than blocking the caller.
type EmailService struct {
	mailer mail.Mailer
	queue  chan mail.Message
	log    *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewEmailService constructs the dispatcher and starts its worker.
func NewEmailService(mailer mail.Mailer) (*EmailService, error) {
	if mailer == nil {
		return nil, errors.New("email service: mailer is required")
	}

	s := &EmailService{
		mailer: mailer,
		queue:  make(chan mail.Message, defaultEmailQueueSize),
		log:    logger.WithModule("email"),
		done:   make(chan struct{}),
	}

	go s.worker()
	return s, nil
}

// Close stops accepting new messages and waits for the queue to drain.
func (s *EmailService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.done
	})
}

// Enqueue schedules a message for delivery. Delivery is best effort.
func (s *EmailService) Enqueue(msg mail.Message) {
	select {
	case s.queue <- msg:
	default:
		s.log.Warn("email queue full, dropping message", zap.Strings("to", msg.To))
	}
}

// SendVerificationEmail asks a new registrant to confirm their address.
func (s *EmailService) SendVerificationEmail(user *models.User, link string) {
	s.Enqueue(mail.Message{
		To:      []string{user.Email},
		Subject: "Confirm your HomeLearn account",
		Body: fmt.Sprintf(
			"Hello %s,\n\nWelcome to HomeLearn!\n\nPlease confirm your email address by visiting the link below:\n%s\n\nIf you did not create an account, you can ignore this message.\n",
			user.DisplayName(),
			link,
		),
	})
}

// SendPaymentReceipt notifies a student that their course payment succeeded.
func (s *EmailService) SendPaymentReceipt(student *models.User, course *models.Course, payment *models.Payment) {
	s.Enqueue(mail.Message{
		To:      []string{student.Email},
		Subject: fmt.Sprintf("Payment confirmed for %s", course.Title),
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour payment of %s %s for the course %q has been confirmed and your seat is booked.\n\nCourse date: %s\nCity: %s\n\nSee you there!\nThe HomeLearn team\n",
			student.DisplayName(),
			payment.Amount.StringFixed(2),
			payment.Currency,
			course.Title,
			course.CourseDateTime.Format("02 Jan 2006 15:04"),
			course.City,
		),
	})
}

// SendEnrollmentNotice tells the teacher a new student booked their course.
func (s *EmailService) SendEnrollmentNotice(teacher, student *models.User, course *models.Course) {
	s.Enqueue(mail.Message{
		To:      []string{teacher.Email},
		Subject: fmt.Sprintf("New enrollment in %s", course.Title),
		Body: fmt.Sprintf(
			"Hello %s,\n\n%s just enrolled in your course %q scheduled on %s.\n\nThe HomeLearn team\n",
			teacher.DisplayName(),
			student.DisplayName(),
			course.Title,
			course.CourseDateTime.Format("02 Jan 2006 15:04"),
		),
	})
}

// SendRefundConfirmation notifies a student their refund went through.
func (s *EmailService) SendRefundConfirmation(student *models.User, course *models.Course, payment *models.Payment) {
	s.Enqueue(mail.Message{
		To:      []string{student.Email},
		Subject: fmt.Sprintf("Refund issued for %s", course.Title),
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour payment of %s %s for the course %q has been refunded and your enrollment cancelled.\n\nThe HomeLearn team\n",
			student.DisplayName(),
			payment.Amount.StringFixed(2),
			payment.Currency,
			course.Title,
		),
	})
}

func (s *EmailService) worker() {
	defer close(s.done)

	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultEmailSendTimeout)
		err := s.mailer.Send(ctx, msg)
		cancel()

		if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Warn("email delivery failed", zap.Strings("to", msg.To), zap.Error(err))
		}
	}
}
