package model

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus int

const (
	UserStatusActive   UserStatus = 1
	UserStatusDisabled UserStatus = 2
	UserStatusBanned   UserStatus = 3
)

// User is the identity a person signs in as. Email, institutional ID and
// institutional email are each unique across all users.
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email              string     `gorm:"type:varchar(320);not null" json:"email"`
	Provider           Provider   `gorm:"type:varchar(32);not null" json:"provider"`
	FirstName          string     `gorm:"type:varchar(128);not null;default:''" json:"first_name"`
	LastName           string     `gorm:"type:varchar(128);not null;default:''" json:"last_name"`
	InstitutionalID    *string    `gorm:"type:varchar(32)" json:"institutional_id,omitempty"`
	InstitutionalEmail *string    `gorm:"type:varchar(320)" json:"institutional_email,omitempty"`
	EmailVerified      bool       `gorm:"not null;default:false" json:"email_verified"`
	OnboardingComplete bool       `gorm:"not null;default:false" json:"onboarding_complete"`
	Points             int        `gorm:"not null;default:0" json:"points"`
	Status             UserStatus `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Abandoned reports whether the user never got past email verification or
// onboarding and holds no points, which makes the record safe to discard.
func (u *User) Abandoned() bool {
	return !u.EmailVerified && !u.OnboardingComplete && u.Points == 0
}
