package model

import (
	"time"

	"github.com/google/uuid"
)

type EventStatus string

const (
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCompleted EventStatus = "completed"
)

type Event struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string      `gorm:"type:varchar(256);not null" json:"name"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Location    string      `gorm:"type:varchar(256)" json:"location,omitempty"`
	PointsValue int         `gorm:"not null;default:0" json:"points_value"`
	StartTime   time.Time   `gorm:"not null;index" json:"start_time"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	Status      EventStatus `gorm:"type:varchar(16);not null;default:'scheduled'" json:"status"`
	CreatedBy   uuid.UUID   `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Event) TableName() string { return "events" }

func (e *Event) Started(now time.Time) bool {
	return !now.Before(e.StartTime)
}

// Ended is true once the event was explicitly completed or its end time has
// passed. An event with no end time stays open until ended.
func (e *Event) Ended(now time.Time) bool {
	if e.Status == EventStatusCompleted {
		return true
	}
	return e.EndTime != nil && !now.Before(*e.EndTime)
}

// AttendanceRecord grants an event's points to a user, once per (user, event).
type AttendanceRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_user_event" json:"user_id"`
	EventID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_user_event;index" json:"event_id"`
	PointsAwarded int       `gorm:"not null" json:"points_awarded"`
	AttendedAt    time.Time `gorm:"not null" json:"attended_at"`
}

func (AttendanceRecord) TableName() string { return "attendance_records" }
