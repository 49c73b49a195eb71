package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/config"
	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
	"github.com/MLH-TTU/MLH-website-sub002/internal/repository"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/crypto"
)

const defaultLinkTokenTTL = 10 * time.Minute

type RegistrationAction string

const (
	// RegistrationCreate means nobody claims the email and a new identity may be created.
	RegistrationCreate RegistrationAction = "create"
	// RegistrationLink means the sign-in must be merged through a linking token.
	RegistrationLink RegistrationAction = "link"
)

type RegistrationOutcome struct {
	Action             RegistrationAction `json:"action"`
	ExistingIdentityID uuid.UUID          `json:"existing_identity_id,omitempty"`
}

type OnboardingInput struct {
	FirstName       string
	LastName        string
	InstitutionalID string
}

type IdentityService interface {
	RegisterOrLinkEmail(ctx context.Context, email string, provider model.Provider, requestingIdentityID *uuid.UUID) (*RegistrationOutcome, error)
	RegisterIdentity(ctx context.Context, email string, provider model.Provider) (*model.User, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (*model.User, error)
	CheckInstitutionalIDExists(ctx context.Context, institutionalID string) (*model.User, error)
	CompleteOnboarding(ctx context.Context, userID uuid.UUID, input OnboardingInput) (*model.User, error)
	IssueLinkingToken(ctx context.Context, existingIdentityID uuid.UUID, incomingEmail string, incomingProvider model.Provider) (string, error)
	ProcessLinking(ctx context.Context, token string) (*model.User, error)
}

type identityService struct {
	cfg       config.LinkingConfig
	userRepo  repository.UserRepository
	tokenRepo repository.LinkingTokenRepository
	codes     CodeGenerator
	clock     Clock
	logger    *zap.Logger
}

func NewIdentityService(
	cfg config.LinkingConfig,
	userRepo repository.UserRepository,
	tokenRepo repository.LinkingTokenRepository,
	codes CodeGenerator,
	clock Clock,
	logger *zap.Logger,
) IdentityService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultLinkTokenTTL
	}
	return &identityService{
		cfg:       cfg,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		codes:     codes,
		clock:     clock,
		logger:    logger.Named("identity"),
	}
}

func (s *identityService) RegisterOrLinkEmail(
	ctx context.Context, email string, provider model.Provider, requestingIdentityID *uuid.UUID,
) (*RegistrationOutcome, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !provider.Valid() {
		return nil, ErrInvalidProvider
	}

	claimant, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &RegistrationOutcome{Action: RegistrationCreate}, nil
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if claimant.Provider == provider {
		return nil, ErrDuplicateIdentity
	}

	// A signed-in caller merges the email into its own profile, which is
	// only possible if the current claimant is a discardable stub.
	target := claimant.ID
	if requestingIdentityID != nil && *requestingIdentityID != claimant.ID {
		if !claimant.Abandoned() {
			return nil, ErrDuplicateIdentity
		}
		target = *requestingIdentityID
	}
	return &RegistrationOutcome{Action: RegistrationLink, ExistingIdentityID: target}, nil
}

func (s *identityService) RegisterIdentity(ctx context.Context, email string, provider model.Provider) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !provider.Valid() {
		return nil, ErrInvalidProvider
	}

	user := &model.User{
		ID:       uuid.New(),
		Email:    email,
		Provider: provider,
		Status:   model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}
	s.logger.Info("identity registered",
		zap.String("identity_id", user.ID.String()), zap.String("provider", string(provider)))
	return user, nil
}

func (s *identityService) GetIdentity(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.user(ctx, id)
}

func (s *identityService) CheckInstitutionalIDExists(ctx context.Context, institutionalID string) (*model.User, error) {
	institutionalID = normalizeInstitutionalID(institutionalID)
	if institutionalID == "" {
		return nil, ErrInvalidInstitutionalID
	}
	user, err := s.userRepo.GetByInstitutionalID(ctx, institutionalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check institutional id: %w", err)
	}
	return user, nil
}

func (s *identityService) CompleteOnboarding(ctx context.Context, userID uuid.UUID, input OnboardingInput) (*model.User, error) {
	institutionalID := normalizeInstitutionalID(input.InstitutionalID)
	if institutionalID == "" {
		return nil, ErrInvalidInstitutionalID
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.OnboardingComplete {
		return nil, ErrOnboardingAlreadyDone
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	holder, err := s.CheckInstitutionalIDExists(ctx, institutionalID)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ID != userID {
		return nil, ErrInstitutionalIDTaken
	}

	// The probe above only gives a friendly answer; the unique index decides
	// races between two onboardings with the same ID.
	err = s.userRepo.CompleteOnboarding(ctx, userID, repository.OnboardingProfile{
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		InstitutionalID: institutionalID,
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrInstitutionalIDTaken
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return s.user(ctx, userID)
}

func (s *identityService) IssueLinkingToken(
	ctx context.Context, existingIdentityID uuid.UUID, incomingEmail string, incomingProvider model.Provider,
) (string, error) {
	email, err := normalizeEmail(incomingEmail)
	if err != nil {
		return "", err
	}
	if !incomingProvider.Valid() {
		return "", ErrInvalidProvider
	}
	existing, err := s.user(ctx, existingIdentityID)
	if err != nil {
		return "", err
	}
	if existing.Provider == incomingProvider && strings.EqualFold(existing.Email, email) {
		return "", ErrLinkSameProvider
	}

	token, err := s.codes.Token()
	if err != nil {
		return "", fmt.Errorf("failed to generate linking token: %w", err)
	}
	now := s.clock.Now()
	record := &model.LinkingToken{
		TokenHash:          crypto.HashToken(token),
		ExistingIdentityID: existingIdentityID,
		IncomingEmail:      email,
		IncomingProvider:   incomingProvider,
		ExpiresAt:          now.Add(s.cfg.TokenTTL),
		CreatedAt:          now,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store linking token: %w", err)
	}
	s.logger.Info("linking token issued",
		zap.String("identity_id", existingIdentityID.String()),
		zap.String("incoming_provider", string(incomingProvider)),
		zap.Time("expires_at", record.ExpiresAt))
	return token, nil
}

func (s *identityService) ProcessLinking(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenNotFound
	}
	now := s.clock.Now()
	user, err := s.tokenRepo.Consume(ctx, crypto.HashToken(token), now, func(t *model.LinkingToken) error {
		switch t.State(now) {
		case model.LinkTokenUsed:
			return ErrTokenAlreadyUsed
		case model.LinkTokenExpired:
			return ErrTokenExpired
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenAlreadyUsed), errors.Is(err, ErrTokenExpired):
			return nil, err
		case errors.Is(err, repository.ErrConditionFailed):
			return nil, ErrTokenAlreadyUsed
		case errors.Is(err, repository.ErrLinkTargetNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrTokenNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to process linking: %w", err)
	}
	s.logger.Info("identities linked",
		zap.String("identity_id", user.ID.String()), zap.String("provider", string(user.Provider)))
	return user, nil
}

func (s *identityService) user(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func normalizeInstitutionalID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

var _ IdentityService = (*identityService)(nil)
