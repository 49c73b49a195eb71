package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type memoryVerificationRepository struct {
	db *MemoryDB
}

func NewMemoryVerificationRepository(db *MemoryDB) VerificationRepository {
	return &memoryVerificationRepository{db: db}
}

func (r *memoryVerificationRepository) Issue(_ context.Context, pv *model.PendingVerification, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing, ok := r.db.pending[pv.IdentityID]; ok && existing.CoolingDown(now) {
		return ErrConditionFailed
	}
	pv.UpdatedAt = now
	r.db.pending[pv.IdentityID] = *pv
	return nil
}

func (r *memoryVerificationRepository) Get(_ context.Context, identityID uuid.UUID) (*model.PendingVerification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	pv, ok := r.db.pending[identityID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &pv, nil
}

func (r *memoryVerificationRepository) RecordFailure(
	_ context.Context, identityID uuid.UUID, codeHash string, maxAttempts int,
	terminal model.VerificationState, lockedUntil *time.Time,
) (*model.PendingVerification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	pv, ok := r.db.pending[identityID]
	if !ok || pv.CodeHash != codeHash || pv.State != model.VerificationActive || pv.AttemptCount >= maxAttempts {
		return nil, ErrConditionFailed
	}
	pv.AttemptCount++
	if pv.AttemptCount >= maxAttempts {
		pv.State = terminal
		pv.RateLimitedUntil = lockedUntil
	}
	pv.UpdatedAt = time.Now().UTC()
	r.db.pending[identityID] = pv
	return &pv, nil
}

func (r *memoryVerificationRepository) Complete(_ context.Context, pv *model.PendingVerification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.pending[pv.IdentityID]
	if !ok || current.CodeHash != pv.CodeHash || current.State != model.VerificationActive {
		return ErrConditionFailed
	}
	u, ok := r.db.users[pv.IdentityID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	email := pv.InstitutionalEmail
	u.EmailVerified = true
	u.InstitutionalEmail = &email
	if err := r.db.checkUserUnique(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	delete(r.db.pending, pv.IdentityID)
	r.db.users[u.ID] = u
	return nil
}

func (r *memoryVerificationRepository) Purge(_ context.Context, identityID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.deleteIdentity(identityID)
	return nil
}

func (r *memoryVerificationRepository) DeleteAbandoned(_ context.Context, identityID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[identityID]
	if !ok {
		delete(r.db.pending, identityID)
		return false, nil
	}
	if !u.Abandoned() {
		return false, nil
	}
	r.db.deleteIdentity(identityID)
	return true, nil
}
