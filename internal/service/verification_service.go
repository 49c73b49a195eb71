package service

import (
	"context"
	"errors"
	"fmt"
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

const (
	defaultVerificationCodeLength = 6
	defaultVerificationCodeTTL    = 10 * time.Minute
	defaultMaxAttempts            = 3
	defaultCooldown               = 5 * time.Minute

	resendKeyPrefix = "verification:resend:"
)

type VerificationOutcome string

const (
	OutcomeVerified      VerificationOutcome = "verified"
	OutcomeInvalidCode   VerificationOutcome = "invalid_code"
	OutcomeRateLimited   VerificationOutcome = "rate_limited"
	OutcomeAccountPurged VerificationOutcome = "account_purged"
)

// VerificationResult is the outcome of one code submission. RetryAfter is
// set only for OutcomeRateLimited.
type VerificationResult struct {
	Outcome           VerificationOutcome `json:"outcome"`
	RemainingAttempts int                 `json:"remaining_attempts"`
	RetryAfter        *time.Time          `json:"retry_after,omitempty"`
}

type VerificationService interface {
	RequestChallenge(ctx context.Context, identityID uuid.UUID, institutionalEmail string) error
	SubmitAttempt(ctx context.Context, identityID uuid.UUID, code string) (*VerificationResult, error)
	// CleanupAbandoned is best-effort: failures are logged, never returned.
	CleanupAbandoned(ctx context.Context, identityID uuid.UUID)
}

type verificationService struct {
	cfg      config.VerificationConfig
	userRepo repository.UserRepository
	pending  repository.VerificationRepository
	state    repository.StateStore
	notifier Notifier
	codes    CodeGenerator
	clock    Clock
	logger   *zap.Logger
}

func NewVerificationService(
	cfg config.VerificationConfig,
	userRepo repository.UserRepository,
	pending repository.VerificationRepository,
	state repository.StateStore,
	notifier Notifier,
	codes CodeGenerator,
	clock Clock,
	logger *zap.Logger,
) VerificationService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = defaultVerificationCodeLength
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaultVerificationCodeTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.ExhaustionPolicy != config.ExhaustionPurge {
		cfg.ExhaustionPolicy = config.ExhaustionRateLimit
	}
	domains := make([]string, 0, len(cfg.AllowedDomains))
	for _, d := range cfg.AllowedDomains {
		domains = append(domains, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@")))
	}
	cfg.AllowedDomains = domains
	return &verificationService{
		cfg:      cfg,
		userRepo: userRepo,
		pending:  pending,
		state:    state,
		notifier: notifier,
		codes:    codes,
		clock:    clock,
		logger:   logger.Named("verification"),
	}
}

func (s *verificationService) RequestChallenge(ctx context.Context, identityID uuid.UUID, institutionalEmail string) error {
	email, err := s.institutionalEmail(institutionalEmail)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user.Status != model.UserStatusActive {
		return ErrUserDisabled
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	holder, err := s.userRepo.GetByInstitutionalEmail(ctx, email)
	switch {
	case err == nil && holder.ID != identityID:
		return ErrInstitutionalEmailTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to check institutional email: %w", err)
	}

	now := s.clock.Now()
	existing, err := s.pending.Get(ctx, identityID)
	switch {
	case err == nil && existing.CoolingDown(now):
		return ErrRateLimited
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to load pending verification: %w", err)
	}

	if s.cfg.ResendInterval > 0 {
		key := resendKeyPrefix + identityID.String()
		ok, err := s.state.Acquire(ctx, key, s.cfg.ResendInterval)
		if err != nil {
			return fmt.Errorf("failed to check resend throttle: %w", err)
		}
		if !ok {
			left, err := s.state.Remaining(ctx, key)
			if err != nil || left <= 0 {
				left = s.cfg.ResendInterval
			}
			return &ThrottledError{RetryAfter: left}
		}
	}

	code, err := s.codes.NumericCode(s.cfg.CodeLength)
	if err != nil {
		s.releaseResend(ctx, identityID)
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	hash, err := crypto.HashCode(code, s.cfg.HashCost)
	if err != nil {
		s.releaseResend(ctx, identityID)
		return fmt.Errorf("failed to hash verification code: %w", err)
	}

	pv := &model.PendingVerification{
		IdentityID:         identityID,
		InstitutionalEmail: email,
		CodeHash:           hash,
		State:              model.VerificationActive,
		AttemptCount:       0,
		IssuedAt:           now,
		ExpiresAt:          now.Add(s.cfg.CodeTTL),
	}
	if err := s.pending.Issue(ctx, pv, now); err != nil {
		s.releaseResend(ctx, identityID)
		if errors.Is(err, repository.ErrConditionFailed) {
			return ErrRateLimited
		}
		return fmt.Errorf("failed to store pending verification: %w", err)
	}

	if err := s.notifier.SendCode(ctx, email, code); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.String("identity_id", identityID.String()), zap.Error(err))
	}
	s.logger.Info("verification challenge issued",
		zap.String("identity_id", identityID.String()), zap.Time("expires_at", pv.ExpiresAt))
	return nil
}

// releaseResend frees the resend slot of a challenge that was never stored.
func (s *verificationService) releaseResend(ctx context.Context, identityID uuid.UUID) {
	if s.cfg.ResendInterval <= 0 {
		return
	}
	if err := s.state.Release(ctx, resendKeyPrefix+identityID.String()); err != nil {
		s.logger.Warn("failed to release resend throttle",
			zap.String("identity_id", identityID.String()), zap.Error(err))
	}
}

func (s *verificationService) SubmitAttempt(ctx context.Context, identityID uuid.UUID, code string) (*VerificationResult, error) {
	code = strings.TrimSpace(code)
	if !crypto.IsNumericCode(code, s.cfg.CodeLength) {
		return nil, ErrVerificationCodeRequired
	}

	pv, err := s.load(ctx, identityID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if pv.State != model.VerificationActive {
		return s.settled(ctx, pv, now)
	}
	if pv.Expired(now) {
		return nil, ErrChallengeExpired
	}

	if crypto.CheckCode(code, pv.CodeHash) {
		return s.complete(ctx, pv, now)
	}
	return s.recordFailure(ctx, pv, now)
}

func (s *verificationService) CleanupAbandoned(ctx context.Context, identityID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("abandoned cleanup panicked",
				zap.String("identity_id", identityID.String()), zap.Any("panic", r))
		}
	}()

	deleted, err := s.pending.DeleteAbandoned(ctx, identityID)
	if err != nil {
		s.logger.Warn("abandoned cleanup failed",
			zap.String("identity_id", identityID.String()), zap.Error(err))
		return
	}
	if !deleted {
		return
	}
	if err := s.state.Release(ctx, resendKeyPrefix+identityID.String()); err != nil {
		s.logger.Debug("failed to clear resend throttle", zap.Error(err))
	}
	s.logger.Info("abandoned identity removed", zap.String("identity_id", identityID.String()))
}

func (s *verificationService) load(ctx context.Context, identityID uuid.UUID) (*model.PendingVerification, error) {
	pv, err := s.pending.Get(ctx, identityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingVerification
		}
		return nil, fmt.Errorf("failed to load pending verification: %w", err)
	}
	return pv, nil
}

func (s *verificationService) complete(ctx context.Context, pv *model.PendingVerification, now time.Time) (*VerificationResult, error) {
	err := s.pending.Complete(ctx, pv)
	switch {
	case err == nil:
		s.logger.Info("institutional email verified", zap.String("identity_id", pv.IdentityID.String()))
		return &VerificationResult{Outcome: OutcomeVerified}, nil
	case errors.Is(err, repository.ErrConditionFailed):
		return s.reload(ctx, pv.IdentityID, now)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, ErrInstitutionalEmailTaken
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("failed to complete verification: %w", err)
	}
}

func (s *verificationService) recordFailure(ctx context.Context, pv *model.PendingVerification, now time.Time) (*VerificationResult, error) {
	terminal := model.VerificationRateLimited
	var until *time.Time
	if s.cfg.ExhaustionPolicy == config.ExhaustionPurge {
		terminal = model.VerificationPurged
	} else {
		t := now.Add(s.cfg.Cooldown)
		until = &t
	}

	updated, err := s.pending.RecordFailure(ctx, pv.IdentityID, pv.CodeHash, s.cfg.MaxAttempts, terminal, until)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return s.reload(ctx, pv.IdentityID, now)
		}
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	if updated.State == model.VerificationActive {
		return &VerificationResult{
			Outcome:           OutcomeInvalidCode,
			RemainingAttempts: updated.RemainingAttempts(s.cfg.MaxAttempts),
		}, nil
	}

	// Only the submission whose increment reached the ceiling gets here.
	s.logger.Info("verification attempts exhausted",
		zap.String("identity_id", pv.IdentityID.String()),
		zap.String("policy", string(s.cfg.ExhaustionPolicy)))
	return s.settled(ctx, updated, now)
}

// reload reports the state a challenge settled in after a conditional write
// lost a race.
func (s *verificationService) reload(ctx context.Context, identityID uuid.UUID, now time.Time) (*VerificationResult, error) {
	pv, err := s.load(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if pv.State == model.VerificationActive {
		return nil, ErrNoPendingVerification
	}
	return s.settled(ctx, pv, now)
}

// settled resolves a challenge in a terminal state. A purge left unfinished
// by an earlier failure is retried here.
func (s *verificationService) settled(ctx context.Context, pv *model.PendingVerification, now time.Time) (*VerificationResult, error) {
	switch pv.State {
	case model.VerificationPurged:
		if err := s.pending.Purge(ctx, pv.IdentityID); err != nil {
			return nil, fmt.Errorf("failed to purge identity: %w", err)
		}
		return &VerificationResult{Outcome: OutcomeAccountPurged}, nil
	case model.VerificationRateLimited:
		if pv.CoolingDown(now) {
			return &VerificationResult{Outcome: OutcomeRateLimited, RetryAfter: pv.RateLimitedUntil}, nil
		}
		return nil, ErrChallengeExpired
	default:
		return nil, ErrNoPendingVerification
	}
}

// institutionalEmail normalizes the address and checks its domain against
// the allow-list.
func (s *verificationService) institutionalEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return "", ErrInvalidEmail
	}
	domain := email[at+1:]
	for _, allowed := range s.cfg.AllowedDomains {
		if domain == allowed {
			return email, nil
		}
	}
	return "", ErrInvalidDomain
}

var _ VerificationService = (*verificationService)(nil)
