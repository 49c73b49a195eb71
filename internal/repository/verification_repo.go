package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type VerificationRepository interface {
	// Issue installs pv as the identity's challenge, replacing an earlier one.
	// Returns ErrConditionFailed if the existing challenge is cooling down at now.
	Issue(ctx context.Context, pv *model.PendingVerification, now time.Time) error
	Get(ctx context.Context, identityID uuid.UUID) (*model.PendingVerification, error)
	// RecordFailure atomically increments the attempt count of the active
	// challenge with the given code hash. When the increment reaches
	// maxAttempts the row moves to terminal (with lockedUntil) in the same
	// statement. Returns ErrConditionFailed if no active challenge matched.
	RecordFailure(ctx context.Context, identityID uuid.UUID, codeHash string, maxAttempts int,
		terminal model.VerificationState, lockedUntil *time.Time) (*model.PendingVerification, error)
	// Complete deletes the matched challenge and marks its identity verified
	// with the challenged institutional email, in one transaction.
	Complete(ctx context.Context, pv *model.PendingVerification) error
	// Purge deletes the challenge and its identity together.
	Purge(ctx context.Context, identityID uuid.UUID) error
	// DeleteAbandoned removes the identity and its challenge only if the
	// identity is still unverified. Reports whether anything was deleted.
	DeleteAbandoned(ctx context.Context, identityID uuid.UUID) (bool, error)
}
