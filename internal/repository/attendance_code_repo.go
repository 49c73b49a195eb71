package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type AttendanceCodeRepository interface {
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.AttendanceCode, error)
	// Install upserts the event's code as active. A value already active for
	// another event yields gorm.ErrDuplicatedKey.
	Install(ctx context.Context, code *model.AttendanceCode) error
	SetActive(ctx context.Context, eventID uuid.UUID, active bool) error
	// FindActive returns the active code with this value, event preloaded.
	FindActive(ctx context.Context, code string) (*model.AttendanceCode, error)
}
