package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type pgVerificationRepository struct {
	db *gorm.DB
}

func NewPGVerificationRepository(db *gorm.DB) VerificationRepository {
	return &pgVerificationRepository{db: db}
}

func (r *pgVerificationRepository) Issue(ctx context.Context, pv *model.PendingVerification, now time.Time) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"institutional_email", "code_hash", "state", "attempt_count",
				"issued_at", "expires_at", "rate_limited_until", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{
					SQL:  "pending_verifications.rate_limited_until IS NULL OR pending_verifications.rate_limited_until <= ?",
					Vars: []interface{}{now},
				},
			}},
		}).
		Create(pv)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *pgVerificationRepository) Get(ctx context.Context, identityID uuid.UUID) (*model.PendingVerification, error) {
	var pv model.PendingVerification
	if err := r.db.WithContext(ctx).First(&pv, "identity_id = ?", identityID).Error; err != nil {
		return nil, err
	}
	return &pv, nil
}

func (r *pgVerificationRepository) RecordFailure(
	ctx context.Context, identityID uuid.UUID, codeHash string, maxAttempts int,
	terminal model.VerificationState, lockedUntil *time.Time,
) (*model.PendingVerification, error) {
	// Every SET expression sees the pre-update row, so the ceiling test and the
	// increment are the same statement and Postgres orders concurrent callers.
	var rows []model.PendingVerification
	res := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("identity_id = ? AND code_hash = ? AND state = ? AND attempt_count < ?",
			identityID, codeHash, model.VerificationActive, maxAttempts).
		Updates(map[string]interface{}{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"state": gorm.Expr("CASE WHEN attempt_count + 1 >= ? THEN ? ELSE state END",
				maxAttempts, terminal),
			"rate_limited_until": gorm.Expr("CASE WHEN attempt_count + 1 >= ? THEN ?::timestamptz ELSE rate_limited_until END",
				maxAttempts, lockedUntil),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return nil, ErrConditionFailed
	}
	return &rows[0], nil
}

func (r *pgVerificationRepository) Complete(ctx context.Context, pv *model.PendingVerification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("identity_id = ? AND code_hash = ? AND state = ?",
			pv.IdentityID, pv.CodeHash, model.VerificationActive).
			Delete(&model.PendingVerification{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConditionFailed
		}

		res = tx.Model(&model.User{}).
			Where("id = ?", pv.IdentityID).
			Updates(map[string]interface{}{
				"email_verified":      true,
				"institutional_email": pv.InstitutionalEmail,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *pgVerificationRepository) Purge(ctx context.Context, identityID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.PendingVerification{}, "identity_id = ?", identityID).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", identityID).Error
	})
}

func (r *pgVerificationRepository) DeleteAbandoned(ctx context.Context, identityID uuid.UUID) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", identityID).
			Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Delete(&model.PendingVerification{}, "identity_id = ?", identityID).Error
		}
		if err != nil {
			return err
		}
		if !user.Abandoned() {
			return nil
		}
		if err := tx.Delete(&model.PendingVerification{}, "identity_id = ?", identityID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.User{}, "id = ?", identityID).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}
