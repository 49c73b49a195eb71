package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type pgEventRepository struct {
	db *gorm.DB
}

func NewPGEventRepository(db *gorm.DB) EventRepository {
	return &pgEventRepository{db: db}
}

func (r *pgEventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *pgEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *pgEventRepository) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := r.db.WithContext(ctx).Order("start_time DESC").Find(&events).Error
	return events, err
}

func (r *pgEventRepository) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *pgEventRepository) End(ctx context.Context, id uuid.UUID, now time.Time) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&event).Error; err != nil {
			return err
		}
		if event.EndTime == nil {
			event.EndTime = &now
		}
		event.Status = model.EventStatusCompleted
		if err := tx.Model(&event).Updates(map[string]interface{}{
			"end_time": event.EndTime,
			"status":   event.Status,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&model.AttendanceCode{}).
			Where("event_id = ?", id).
			Update("active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type pgAttendanceRepository struct {
	db *gorm.DB
}

func NewPGAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &pgAttendanceRepository{db: db}
}

func (r *pgAttendanceRepository) Record(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The (user_id, event_id) unique index admits exactly one concurrent insert.
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		res := tx.Model(&model.User{}).
			Where("id = ?", record.UserID).
			UpdateColumn("points", gorm.Expr("points + ?", record.PointsAwarded))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *pgAttendanceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attended_at DESC").
		Find(&records).Error
	return records, err
}
