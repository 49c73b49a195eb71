package model

import (
	"time"

	"github.com/google/uuid"
)

type CodeState string

const (
	CodeStateNone       CodeState = "none"
	CodeStateActive     CodeState = "active"
	CodeStateInactive   CodeState = "inactive"
	CodeStateSuperseded CodeState = "superseded"
)

// AttendanceCode is the single code slot of an event. Regenerating replaces
// the value in place; the code is unique only among active rows.
type AttendanceCode struct {
	EventID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	Code        string    `gorm:"type:varchar(16);not null" json:"code"`
	Active      bool      `gorm:"not null;default:false" json:"active"`
	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	GeneratedBy uuid.UUID `gorm:"type:uuid;not null" json:"generated_by"`
	UpdatedAt   time.Time `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AttendanceCode) TableName() string { return "attendance_codes" }

// State evaluates the code lifecycle lazily against the event window.
func (c *AttendanceCode) State(event *Event, now time.Time) CodeState {
	if c == nil {
		return CodeStateNone
	}
	if event != nil && event.Ended(now) {
		return CodeStateSuperseded
	}
	if c.Active {
		return CodeStateActive
	}
	return CodeStateInactive
}
