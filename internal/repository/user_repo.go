package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

// UserRepository stores identities. Email lookups are case-insensitive.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByInstitutionalID(ctx context.Context, institutionalID string) (*model.User, error)
	GetByInstitutionalEmail(ctx context.Context, email string) (*model.User, error)
	CompleteOnboarding(ctx context.Context, id uuid.UUID, profile OnboardingProfile) error
	TopByPoints(ctx context.Context, limit int) ([]model.User, error)
}

type OnboardingProfile struct {
	FirstName       string
	LastName        string
	InstitutionalID string
}
