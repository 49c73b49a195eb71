package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type memoryAttendanceCodeRepository struct {
	db *MemoryDB
}

func NewMemoryAttendanceCodeRepository(db *MemoryDB) AttendanceCodeRepository {
	return &memoryAttendanceCodeRepository{db: db}
}

// activeClash reports whether code is active for an event other than eventID. Caller holds mu.
func (r *memoryAttendanceCodeRepository) activeClash(eventID uuid.UUID, code string) bool {
	for id, c := range r.db.codes {
		if id != eventID && c.Active && c.Code == code {
			return true
		}
	}
	return false
}

func (r *memoryAttendanceCodeRepository) GetByEventID(_ context.Context, eventID uuid.UUID) (*model.AttendanceCode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.codes[eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memoryAttendanceCodeRepository) Install(_ context.Context, code *model.AttendanceCode) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[code.EventID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if r.activeClash(code.EventID, code.Code) {
		return gorm.ErrDuplicatedKey
	}
	code.Active = true
	code.UpdatedAt = time.Now().UTC()
	stored := *code
	stored.Event = nil
	r.db.codes[code.EventID] = stored
	return nil
}

func (r *memoryAttendanceCodeRepository) SetActive(_ context.Context, eventID uuid.UUID, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.codes[eventID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if active && r.activeClash(eventID, c.Code) {
		return gorm.ErrDuplicatedKey
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	r.db.codes[eventID] = c
	return nil
}

func (r *memoryAttendanceCodeRepository) FindActive(_ context.Context, code string) (*model.AttendanceCode, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, c := range r.db.codes {
		if !c.Active || c.Code != code {
			continue
		}
		e, ok := r.db.events[id]
		if !ok {
			break
		}
		found := c
		found.Event = &e
		return &found, nil
	}
	return nil, gorm.ErrRecordNotFound
}
