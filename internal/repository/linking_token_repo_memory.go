package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type memoryLinkingTokenRepository struct {
	db *MemoryDB
}

func NewMemoryLinkingTokenRepository(db *MemoryDB) LinkingTokenRepository {
	return &memoryLinkingTokenRepository{db: db}
}

func (r *memoryLinkingTokenRepository) Create(_ context.Context, token *model.LinkingToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tokens[token.TokenHash]; exists {
		return gorm.ErrDuplicatedKey
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	r.db.tokens[token.TokenHash] = *token
	return nil
}

func (r *memoryLinkingTokenRepository) Consume(
	_ context.Context, tokenHash string, now time.Time, check func(*model.LinkingToken) error,
) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	token, ok := r.db.tokens[tokenHash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if err := check(&token); err != nil {
		return nil, err
	}
	if token.Used {
		return nil, ErrConditionFailed
	}

	target, ok := r.db.users[token.ExistingIdentityID]
	if !ok {
		return nil, ErrLinkTargetNotFound
	}
	var donor *model.User
	for id, u := range r.db.users {
		if id != target.ID && strings.EqualFold(u.Email, token.IncomingEmail) {
			if !u.Abandoned() {
				return nil, gorm.ErrDuplicatedKey
			}
			d := u
			donor = &d
			break
		}
	}

	// Nothing is written until every check has passed, so a failure leaves
	// both the token and the identities untouched.
	if donor != nil {
		r.db.deleteIdentity(donor.ID)
	}
	target.Email = token.IncomingEmail
	target.Provider = token.IncomingProvider
	target.UpdatedAt = now
	r.db.users[target.ID] = target

	usedAt := now
	token.Used = true
	token.UsedAt = &usedAt
	r.db.tokens[tokenHash] = token
	return &target, nil
}
