package models

import "time"

// RequestTransition is one append-only audit entry for a service request
// status change. Rows are never updated or deleted.
type RequestTransition struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint      `gorm:"not null;index" json:"service_request_id"`
	FromStatus       string    `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus         string    `gorm:"type:varchar(20);not null" json:"to_status"`
	ActorID          uint      `gorm:"not null" json:"actor_id"`
	ActorKind        string    `gorm:"type:varchar(10);not null" json:"actor_kind"`
	Reason           string    `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
