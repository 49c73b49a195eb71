package model

import (
	"time"

	"github.com/google/uuid"
)

// VerificationState is the lifecycle of a pending institutional-email
// challenge. Rows only ever hold Active, RateLimited or Purged; Verified is
// reached by deleting the row.
type VerificationState string

const (
	VerificationActive      VerificationState = "active"
	VerificationRateLimited VerificationState = "rate_limited"
	VerificationPurged      VerificationState = "purged"
	VerificationVerified    VerificationState = "verified"
)

type PendingVerification struct {
	IdentityID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"identity_id"`
	InstitutionalEmail string            `gorm:"type:varchar(320);not null" json:"institutional_email"`
	CodeHash           string            `gorm:"type:varchar(128);not null" json:"-"`
	State              VerificationState `gorm:"type:varchar(16);not null;default:'active'" json:"state"`
	AttemptCount       int               `gorm:"not null;default:0" json:"attempt_count"`
	IssuedAt           time.Time         `gorm:"not null" json:"issued_at"`
	ExpiresAt          time.Time         `gorm:"not null" json:"expires_at"`
	RateLimitedUntil   *time.Time        `json:"rate_limited_until,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (PendingVerification) TableName() string { return "pending_verifications" }

func (p *PendingVerification) CoolingDown(now time.Time) bool {
	return p.RateLimitedUntil != nil && now.Before(*p.RateLimitedUntil)
}

func (p *PendingVerification) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

func (p *PendingVerification) RemainingAttempts(max int) int {
	if left := max - p.AttemptCount; left > 0 {
		return left
	}
	return 0
}
