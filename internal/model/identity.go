package model

import (
	"time"

	"github.com/google/uuid"
)

// Provider is the sign-in method an identity's email is bound to.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderGitHub, ProviderGoogle:
		return true
	}
	return false
}

type LinkTokenState string

const (
	LinkTokenPending LinkTokenState = "pending"
	LinkTokenUsed    LinkTokenState = "used"
	LinkTokenExpired LinkTokenState = "expired"
)

// LinkingToken authorizes merging a new sign-in method into an existing
// identity. Only the SHA-256 of the token is stored.
type LinkingToken struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TokenHash          string     `gorm:"type:char(64);uniqueIndex;not null" json:"-"`
	ExistingIdentityID uuid.UUID  `gorm:"type:uuid;not null;index" json:"existing_identity_id"`
	IncomingEmail      string     `gorm:"type:varchar(320);not null" json:"incoming_email"`
	IncomingProvider   Provider   `gorm:"type:varchar(32);not null" json:"incoming_provider"`
	ExpiresAt          time.Time  `gorm:"not null" json:"expires_at"`
	Used               bool       `gorm:"not null;default:false" json:"used"`
	UsedAt             *time.Time `json:"used_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (LinkingToken) TableName() string { return "linking_tokens" }

// State folds the used flag and expiry into one value. A used token stays
// used after it would have expired.
func (t *LinkingToken) State(now time.Time) LinkTokenState {
	switch {
	case t.Used:
		return LinkTokenUsed
	case !now.Before(t.ExpiresAt):
		return LinkTokenExpired
	default:
		return LinkTokenPending
	}
}
