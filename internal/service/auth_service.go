package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
)

// TokenSet represents the tokens returned after authentication.
type TokenSet struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthStatus string

const (
	AuthSignedIn     AuthStatus = "signed_in"
	AuthLinkRequired AuthStatus = "link_required"
)

type AuthResult struct {
	Status AuthStatus  `json:"status"`
	User   *model.User `json:"user,omitempty"`
	Tokens *TokenSet   `json:"tokens,omitempty"`
}

// AuthService turns identity engine outcomes into sessions. A sign-in that
// collides with another provider produces a linking token delivered to the
// target identity's current email instead of a session.
type AuthService interface {
	Register(ctx context.Context, email string, provider model.Provider, requestingIdentityID *uuid.UUID) (*AuthResult, error)
	CompleteLink(ctx context.Context, token string) (*AuthResult, error)
}

type authService struct {
	identity   IdentityService
	notifier   Notifier
	jwtManager *jwtpkg.Manager
	logger     *zap.Logger
}

func NewAuthService(identity IdentityService, notifier Notifier, jwtManager *jwtpkg.Manager, logger *zap.Logger) AuthService {
	return &authService{
		identity:   identity,
		notifier:   notifier,
		jwtManager: jwtManager,
		logger:     logger.Named("auth"),
	}
}

func (s *authService) Register(
	ctx context.Context, email string, provider model.Provider, requestingIdentityID *uuid.UUID,
) (*AuthResult, error) {
	outcome, err := s.identity.RegisterOrLinkEmail(ctx, email, provider, requestingIdentityID)
	if err != nil {
		return nil, err
	}

	if outcome.Action == RegistrationCreate {
		user, err := s.identity.RegisterIdentity(ctx, email, provider)
		if err != nil {
			return nil, err
		}
		return s.signedIn(user)
	}

	target, err := s.identity.GetIdentity(ctx, outcome.ExistingIdentityID)
	if err != nil {
		return nil, err
	}
	token, err := s.identity.IssueLinkingToken(ctx, target.ID, email, provider)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendLinkToken(ctx, target.Email, token); err != nil {
		s.logger.Warn("linking token delivery failed",
			zap.String("identity_id", target.ID.String()), zap.Error(err))
	}
	return &AuthResult{Status: AuthLinkRequired}, nil
}

func (s *authService) CompleteLink(ctx context.Context, token string) (*AuthResult, error) {
	user, err := s.identity.ProcessLinking(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.signedIn(user)
}

func (s *authService) signedIn(user *model.User) (*AuthResult, error) {
	access, err := s.jwtManager.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return &AuthResult{
		Status: AuthSignedIn,
		User:   user,
		Tokens: &TokenSet{
			AccessToken: access,
			TokenType:   "Bearer",
			ExpiresIn:   int64(s.jwtManager.TTL().Seconds()),
		},
	}, nil
}

// ensure authService implements AuthService
var _ AuthService = (*authService)(nil)
