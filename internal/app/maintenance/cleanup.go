package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
	"github.com/homelearnhq/homelearn/pkg/logger"
)

const (
	defaultStalePaymentAge = 24 * time.Hour
	defaultTokenSpec       = "@daily"
	defaultPaymentSpec     = "@hourly"
)

// Cleaner coordinates background maintenance tasks: purging expired email
// verification tokens and cancelling payments abandoned mid checkout.
type Cleaner struct {
	db              *gorm.DB
	cron            *cron.Cron
	now             func() time.Time
	log             *zap.Logger
	stalePaymentAge time.Duration

	tokenSchedule   string
	paymentSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithStalePaymentAge adjusts how long an open payment may sit before it is cancelled.
func WithStalePaymentAge(age time.Duration) Option {
	return func(cleaner *Cleaner) {
		if age > 0 {
			cleaner.stalePaymentAge = age
		}
	}
}

// WithTokenSchedule overrides the cron specification for token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithPaymentSchedule overrides the cron specification for stale payment cleanup.
func WithPaymentSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.paymentSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		now:             time.Now,
		stalePaymentAge: defaultStalePaymentAge,
		tokenSchedule:   defaultTokenSpec,
		paymentSchedule: defaultPaymentSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
		ctx := context.Background()
		if _, err := CleanupVerificationTokens(ctx, c.db, c.now()); err != nil {
			c.log.Warn("verification token cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(c.paymentSchedule, func() {
		ctx := context.Background()
		if _, err := CancelStalePayments(ctx, c.db, c.now().Add(-c.stalePaymentAge)); err != nil {
			c.log.Warn("stale payment cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := CleanupVerificationTokens(ctx, c.db, c.now()); err != nil {
		errs = multierr.Append(errs, err)
	}

	if _, err := CancelStalePayments(ctx, c.db, c.now().Add(-c.stalePaymentAge)); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// CleanupVerificationTokens removes expired or already used email verification tokens.
func CleanupVerificationTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup tokens: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("expires_at < ? OR verified_at IS NOT NULL", now).
		Delete(&models.EmailVerification{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup tokens: email verification: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// CancelStalePayments marks open payments created before the cutoff as canceled.
// Rows stay in place so the payment history remains auditable.
func CancelStalePayments(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cancel stale payments: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status IN ? AND created_at < ?", []models.PaymentStatus{models.PaymentPending, models.PaymentRequiresAction}, cutoff).
		Update("status", models.PaymentCanceled)
	if result.Error != nil {
		return 0, fmt.Errorf("cancel stale payments: %w", result.Error)
	}

	return result.RowsAffected, nil
}
