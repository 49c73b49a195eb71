package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
)

type memoryEventRepository struct {
	db *MemoryDB
}

func NewMemoryEventRepository(db *MemoryDB) EventRepository {
	return &memoryEventRepository{db: db}
}

func (r *memoryEventRepository) Create(_ context.Context, event *model.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if _, exists := r.db.events[event.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if event.Status == "" {
		event.Status = model.EventStatusScheduled
	}
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now
	r.db.events[event.ID] = *event
	return nil
}

func (r *memoryEventRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *memoryEventRepository) List(_ context.Context) ([]model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	events := make([]model.Event, 0, len(r.db.events))
	for _, e := range r.db.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartTime.After(events[j].StartTime) })
	return events, nil
}

func (r *memoryEventRepository) Update(_ context.Context, event *model.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.events[event.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	event.UpdatedAt = time.Now().UTC()
	r.db.events[event.ID] = *event
	return nil
}

func (r *memoryEventRepository) End(_ context.Context, id uuid.UUID, now time.Time) (*model.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if e.EndTime == nil {
		end := now
		e.EndTime = &end
	}
	e.Status = model.EventStatusCompleted
	e.UpdatedAt = now
	r.db.events[id] = e
	if c, ok := r.db.codes[id]; ok {
		c.Active = false
		r.db.codes[id] = c
	}
	return &e, nil
}

type memoryAttendanceRepository struct {
	db *MemoryDB
}

func NewMemoryAttendanceRepository(db *MemoryDB) AttendanceRepository {
	return &memoryAttendanceRepository{db: db}
}

func (r *memoryAttendanceRepository) Record(_ context.Context, record *model.AttendanceRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.records {
		if existing.UserID == record.UserID && existing.EventID == record.EventID {
			return gorm.ErrDuplicatedKey
		}
	}
	u, ok := r.db.users[record.UserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	u.Points += record.PointsAwarded
	r.db.users[u.ID] = u
	r.db.records[record.ID] = *record
	return nil
}

func (r *memoryAttendanceRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.AttendanceRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.AttendanceRecord
	for _, rec := range r.db.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttendedAt.After(out[j].AttendedAt) })
	return out, nil
}
