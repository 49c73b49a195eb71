package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&PendingVerification{},
		&Event{},
		&AttendanceCode{},
		&AttendanceRecord{},
		&LinkingToken{},
	); err != nil {
		return err
	}

	indexes := []string{
		// Case-insensitive unique sign-in email.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower " +
			"ON users ((lower(email)))",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_institutional_id " +
			"ON users (institutional_id) WHERE institutional_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_institutional_email_lower " +
			"ON users ((lower(institutional_email))) WHERE institutional_email IS NOT NULL",
		// A code value may be reused over time, but never by two active events at once.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_codes_active_code " +
			"ON attendance_codes (code) WHERE active",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
