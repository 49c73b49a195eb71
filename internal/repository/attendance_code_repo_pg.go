package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type pgAttendanceCodeRepository struct {
	db *gorm.DB
}

func NewPGAttendanceCodeRepository(db *gorm.DB) AttendanceCodeRepository {
	return &pgAttendanceCodeRepository{db: db}
}

func (r *pgAttendanceCodeRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*model.AttendanceCode, error) {
	var code model.AttendanceCode
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *pgAttendanceCodeRepository) Install(ctx context.Context, code *model.AttendanceCode) error {
	code.Active = true
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "active", "generated_at", "generated_by", "updated_at"}),
		}).
		Create(code).Error
}

func (r *pgAttendanceCodeRepository) SetActive(ctx context.Context, eventID uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.AttendanceCode{}).
		Where("event_id = ?", eventID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pgAttendanceCodeRepository) FindActive(ctx context.Context, code string) (*model.AttendanceCode, error) {
	var ac model.AttendanceCode
	err := r.db.WithContext(ctx).
		Preload("Event").
		Where("code = ? AND active", code).
		Take(&ac).Error
	if err != nil {
		return nil, err
	}
	return &ac, nil
}
