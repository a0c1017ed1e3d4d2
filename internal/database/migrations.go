package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/homelearnhq/homelearn/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.Payment{},
		&models.Conversation{},
		&models.ChatMessage{},
		&models.EmailVerification{},
	); err != nil {
		return err
	}

	return createPartialIndexes(db)
}

// createPartialIndexes enforces "at most one live row per (student, course)"
// at the database level where the dialect supports partial unique indexes.
// MySQL does not; there the serialized transactional checks in the services
// remain the only guard.
func createPartialIndexes(db *gorm.DB) error {
	if db.Dialector.Name() == "mysql" {
		return nil
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_live_enrollment
			ON enrollments (student_id, course_id)
			WHERE status IN ('ACTIVE', 'COMPLETED')`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_open_payment
			ON payments (student_id, course_id)
			WHERE status IN ('PENDING', 'REQUIRES_ACTION')`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
