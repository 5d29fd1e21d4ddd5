package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MeetingStatusScheduled   = "scheduled"
	MeetingStatusRescheduled = "rescheduled"
	MeetingStatusCancelled   = "cancelled"
	MeetingStatusCompleted   = "completed"
)

// Meeting is a scheduled video call for a service request. At most one
// non-cancelled meeting may exist per request; cancellation keeps the row as
// an audit trail.
type Meeting struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint           `gorm:"not null;index" json:"service_request_id"`
	Provider         string         `gorm:"type:varchar(50);not null" json:"provider"`
	ExternalID       string         `gorm:"type:varchar(100)" json:"external_id"`
	JoinURL          string         `gorm:"type:text" json:"join_url"`
	StartURL         string         `gorm:"type:text" json:"-"`
	Password         string         `gorm:"type:varchar(50)" json:"password,omitempty"`
	ScheduledAt      time.Time      `gorm:"not null" json:"scheduled_at"`
	DurationMinutes  int            `gorm:"default:30" json:"duration_minutes"`
	Status           string         `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	AttendeesJSON    string         `gorm:"type:text" json:"attendees_json,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Meeting) IsActive() bool {
	return m.Status != MeetingStatusCancelled
}
