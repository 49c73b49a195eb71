package repository

import (
	"context"
	"time"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type LinkingTokenRepository interface {
	Create(ctx context.Context, token *model.LinkingToken) error
	// Consume locks the token, lets check veto, then in the same transaction
	// rewrites the existing identity's email/provider and flips used. If the
	// incoming email belongs to another abandoned identity that identity is
	// deleted; a live one yields gorm.ErrDuplicatedKey. An unknown token is
	// gorm.ErrRecordNotFound, a deleted target ErrLinkTargetNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time, check func(*model.LinkingToken) error) (*model.User, error)
}
