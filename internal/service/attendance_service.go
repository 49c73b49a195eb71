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
	defaultAttendanceCodeLength = 6
	defaultGenerateAttempts     = 5
	defaultLeaderboardSize      = 10
	maxLeaderboardSize          = 100
)

// EventInput carries the admin-editable fields of an event.
type EventInput struct {
	Name        string
	Description string
	Location    string
	PointsValue int
	StartTime   time.Time
	EndTime     *time.Time
}

// CodeStatus is an event's attendance code together with its lifecycle
// state evaluated at read time.
type CodeStatus struct {
	model.AttendanceCode
	State model.CodeState `json:"state"`
}

type AttendanceResult struct {
	EventID      uuid.UUID `json:"event_id"`
	EventName    string    `json:"event_name"`
	PointsEarned int       `json:"points_earned"`
	AttendedAt   time.Time `json:"attended_at"`
}

type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Points    int       `json:"points"`
}

type AttendanceService interface {
	CreateEvent(ctx context.Context, adminID uuid.UUID, input EventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, eventID uuid.UUID, input EventInput) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GenerateCode(ctx context.Context, eventID, adminID uuid.UUID) (*CodeStatus, error)
	GetCode(ctx context.Context, eventID uuid.UUID) (*CodeStatus, error)
	ToggleCode(ctx context.Context, eventID uuid.UUID, active bool) (*CodeStatus, error)
	SubmitAttendance(ctx context.Context, userID uuid.UUID, code string) (*AttendanceResult, error)
	EndEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	History(ctx context.Context, userID uuid.UUID) ([]model.AttendanceRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type attendanceService struct {
	cfg        config.AttendanceConfig
	eventRepo  repository.EventRepository
	codeRepo   repository.AttendanceCodeRepository
	recordRepo repository.AttendanceRepository
	userRepo   repository.UserRepository
	codes      CodeGenerator
	clock      Clock
	logger     *zap.Logger
}

func NewAttendanceService(
	cfg config.AttendanceConfig,
	eventRepo repository.EventRepository,
	codeRepo repository.AttendanceCodeRepository,
	recordRepo repository.AttendanceRepository,
	userRepo repository.UserRepository,
	codes CodeGenerator,
	clock Clock,
	logger *zap.Logger,
) AttendanceService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = defaultAttendanceCodeLength
	}
	if cfg.MaxGenerateAttempts <= 0 {
		cfg.MaxGenerateAttempts = defaultGenerateAttempts
	}
	return &attendanceService{
		cfg:        cfg,
		eventRepo:  eventRepo,
		codeRepo:   codeRepo,
		recordRepo: recordRepo,
		userRepo:   userRepo,
		codes:      codes,
		clock:      clock,
		logger:     logger.Named("attendance"),
	}
}

func (s *attendanceService) CreateEvent(ctx context.Context, adminID uuid.UUID, input EventInput) (*model.Event, error) {
	if err := validateEventInput(input); err != nil {
		return nil, err
	}
	event := &model.Event{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Location:    input.Location,
		PointsValue: input.PointsValue,
		StartTime:   input.StartTime.UTC(),
		EndTime:     utcPtr(input.EndTime),
		Status:      model.EventStatusScheduled,
		CreatedBy:   adminID,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *attendanceService) UpdateEvent(ctx context.Context, eventID uuid.UUID, input EventInput) (*model.Event, error) {
	if err := validateEventInput(input); err != nil {
		return nil, err
	}
	event, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Started(s.clock.Now()) {
		return nil, ErrEventAlreadyStarted
	}

	event.Name = strings.TrimSpace(input.Name)
	event.Description = input.Description
	event.Location = input.Location
	event.PointsValue = input.PointsValue
	event.StartTime = input.StartTime.UTC()
	event.EndTime = utcPtr(input.EndTime)
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

func (s *attendanceService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.eventRepo.List(ctx)
}

func (s *attendanceService) GenerateCode(ctx context.Context, eventID, adminID uuid.UUID) (*CodeStatus, error) {
	event, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !event.Started(now) {
		return nil, ErrEventNotStarted
	}
	if event.Ended(now) {
		return nil, ErrEventEnded
	}

	// Regenerating must rotate the value, so the event's current code counts
	// as taken alongside every other active one.
	var current string
	existing, err := s.codeRepo.GetByEventID(ctx, eventID)
	switch {
	case err == nil:
		current = existing.Code
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to find attendance code: %w", err)
	}

	for attempt := 1; attempt <= s.cfg.MaxGenerateAttempts; attempt++ {
		value, err := s.codes.NumericCode(s.cfg.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate attendance code: %w", err)
		}
		if value == current {
			s.logger.Debug("drew the current attendance code, redrawing",
				zap.String("event_id", eventID.String()), zap.Int("attempt", attempt))
			continue
		}
		code := &model.AttendanceCode{
			EventID:     eventID,
			Code:        value,
			GeneratedAt: now,
			GeneratedBy: adminID,
		}
		err = s.codeRepo.Install(ctx, code)
		switch {
		case err == nil:
			s.logger.Info("attendance code installed",
				zap.String("event_id", eventID.String()),
				zap.String("admin_id", adminID.String()),
				zap.Int("attempt", attempt))
			return &CodeStatus{AttendanceCode: *code, State: code.State(event, now)}, nil
		case errors.Is(err, gorm.ErrDuplicatedKey):
			s.logger.Debug("attendance code collision, redrawing",
				zap.String("event_id", eventID.String()), zap.Int("attempt", attempt))
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return nil, ErrEventNotFound
		default:
			return nil, fmt.Errorf("failed to install attendance code: %w", err)
		}
	}

	s.logger.Warn("attendance code generation exhausted retries",
		zap.String("event_id", eventID.String()), zap.Int("attempts", s.cfg.MaxGenerateAttempts))
	return nil, ErrCodeGenerationFailed
}

func (s *attendanceService) GetCode(ctx context.Context, eventID uuid.UUID) (*CodeStatus, error) {
	event, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	code, err := s.code(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &CodeStatus{AttendanceCode: *code, State: code.State(event, s.clock.Now())}, nil
}

func (s *attendanceService) ToggleCode(ctx context.Context, eventID uuid.UUID, active bool) (*CodeStatus, error) {
	event, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	code, err := s.code(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if active && event.Ended(now) {
		return nil, ErrEventEnded
	}
	if code.Active == active {
		return &CodeStatus{AttendanceCode: *code, State: code.State(event, now)}, nil
	}

	if err := s.codeRepo.SetActive(ctx, eventID, active); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrCodeConflict
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNoAttendanceCode
		}
		return nil, fmt.Errorf("failed to toggle attendance code: %w", err)
	}
	code.Active = active
	s.logger.Info("attendance code toggled",
		zap.String("event_id", eventID.String()), zap.Bool("active", active))
	return &CodeStatus{AttendanceCode: *code, State: code.State(event, now)}, nil
}

func (s *attendanceService) SubmitAttendance(ctx context.Context, userID uuid.UUID, code string) (*AttendanceResult, error) {
	code = strings.TrimSpace(code)
	if !crypto.IsNumericCode(code, s.cfg.CodeLength) {
		return nil, ErrInvalidCode
	}
	active, err := s.codeRepo.FindActive(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to look up attendance code: %w", err)
	}
	event := active.Event
	if event == nil {
		if event, err = s.event(ctx, active.EventID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if !event.Started(now) {
		return nil, ErrEventNotStarted
	}
	if event.Ended(now) {
		return nil, ErrEventEnded
	}

	// Only verified members earn points, which also keeps point holders out
	// of abandoned-identity cleanup.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	record := &model.AttendanceRecord{
		UserID:        userID,
		EventID:       event.ID,
		PointsAwarded: event.PointsValue,
		AttendedAt:    now,
	}
	if err := s.recordRepo.Record(ctx, record); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrAlreadyAttended
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}

	s.logger.Info("attendance recorded",
		zap.String("user_id", userID.String()),
		zap.String("event_id", event.ID.String()),
		zap.Int("points", record.PointsAwarded))
	return &AttendanceResult{
		EventID:      event.ID,
		EventName:    event.Name,
		PointsEarned: record.PointsAwarded,
		AttendedAt:   now,
	}, nil
}

func (s *attendanceService) EndEvent(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.eventRepo.End(ctx, eventID, s.clock.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to end event: %w", err)
	}
	s.logger.Info("event ended", zap.String("event_id", eventID.String()))
	return event, nil
}

func (s *attendanceService) History(ctx context.Context, userID uuid.UUID) ([]model.AttendanceRecord, error) {
	return s.recordRepo.ListByUser(ctx, userID)
}

func (s *attendanceService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	users, err := s.userRepo.TopByPoints(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:      i + 1,
			UserID:    u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Points:    u.Points,
		})
	}
	return entries, nil
}

func (s *attendanceService) event(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return event, nil
}

func (s *attendanceService) code(ctx context.Context, eventID uuid.UUID) (*model.AttendanceCode, error) {
	code, err := s.codeRepo.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAttendanceCode
		}
		return nil, fmt.Errorf("failed to find attendance code: %w", err)
	}
	return code, nil
}

func validateEventInput(input EventInput) error {
	if strings.TrimSpace(input.Name) == "" || input.PointsValue < 0 || input.StartTime.IsZero() {
		return ErrInvalidEvent
	}
	if input.EndTime != nil && !input.EndTime.After(input.StartTime) {
		return ErrInvalidEvent
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ AttendanceService = (*attendanceService)(nil)
