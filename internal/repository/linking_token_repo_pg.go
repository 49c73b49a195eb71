package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type pgLinkingTokenRepository struct {
	db *gorm.DB
}

func NewPGLinkingTokenRepository(db *gorm.DB) LinkingTokenRepository {
	return &pgLinkingTokenRepository{db: db}
}

func (r *pgLinkingTokenRepository) Create(ctx context.Context, token *model.LinkingToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *pgLinkingTokenRepository) Consume(
	ctx context.Context, tokenHash string, now time.Time, check func(*model.LinkingToken) error,
) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock serializes concurrent consumers of the same token.
		var token model.LinkingToken
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", tokenHash).
			Take(&token).Error; err != nil {
			return err
		}
		if err := check(&token); err != nil {
			return err
		}

		var donor model.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("lower(email) = lower(?) AND id <> ?", token.IncomingEmail, token.ExistingIdentityID).
			Take(&donor).Error
		switch {
		case err == nil:
			if !donor.Abandoned() {
				return gorm.ErrDuplicatedKey
			}
			if err := tx.Delete(&model.PendingVerification{}, "identity_id = ?", donor.ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&model.User{}, "id = ?", donor.ID).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		res := tx.Model(&model.User{}).
			Where("id = ?", token.ExistingIdentityID).
			Updates(map[string]interface{}{
				"email":    token.IncomingEmail,
				"provider": token.IncomingProvider,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkTargetNotFound
		}

		res = tx.Model(&model.LinkingToken{}).
			Where("id = ? AND NOT used", token.ID).
			Updates(map[string]interface{}{"used": true, "used_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConditionFailed
		}

		return tx.First(&user, "id = ?", token.ExistingIdentityID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
