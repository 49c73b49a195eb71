package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, event *model.Event) error
	// End stamps end_time (if unset) and completes the event, deactivating its code.
	End(ctx context.Context, id uuid.UUID, now time.Time) (*model.Event, error)
}

type AttendanceRepository interface {
	// Record inserts the attendance row and credits the user's point total in
	// one transaction. A repeated (user, event) pair yields gorm.ErrDuplicatedKey.
	Record(ctx context.Context, record *model.AttendanceRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AttendanceRecord, error)
}
