package models

import (
	"time"

	"gorm.io/gorm"
)

// Canonical request statuses. The state machine in internal/pkg/lifecycle is
// the only writer of this column.
const (
	RequestStatusPending    = "pending"
	RequestStatusAccepted   = "accepted"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
	RequestStatusCancelled  = "cancelled"
	RequestStatusRejected   = "rejected"
	RequestStatusEscalated  = "escalated"
)

// Work stages are display annotations reported by the CA while a request is
// in progress. They never replace the canonical status.
const (
	StageDocumentsRequested = "documents_requested"
	StageDocumentsReceived  = "documents_received"
	StageReviewInProgress   = "review_in_progress"
	StageFiled              = "filed"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// ServiceRequest is one consultation engagement between a taxpayer and a CA.
type ServiceRequest struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;index" json:"user_id"`
	User               User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CAID               *uint          `gorm:"column:ca_id;index" json:"ca_id"`
	CA                 *CharteredAccountant `gorm:"foreignKey:CAID" json:"ca,omitempty"`
	RequestedCAID      *uint          `gorm:"column:requested_ca_id" json:"requested_ca_id,omitempty"`
	ServiceType        string         `gorm:"type:varchar(100);not null" json:"service_type" validate:"required"`
	Purpose            string         `gorm:"type:text" json:"purpose"`
	Status             string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Stage              string         `gorm:"type:varchar(50);default:null" json:"stage,omitempty"`
	Priority           string         `gorm:"type:varchar(20);default:'normal'" json:"priority"`
	ScheduledAt        *time.Time     `gorm:"type:timestamp;default:null" json:"scheduled_at,omitempty"`
	Deadline           *time.Time     `gorm:"type:timestamp;default:null" json:"deadline,omitempty"`
	EstimatedAmount    float64        `gorm:"type:decimal(10,2);default:0" json:"estimated_amount"`
	FinalAmount        float64        `gorm:"type:decimal(10,2);default:0" json:"final_amount"`
	CancellationReason string         `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CompletedAt        *time.Time     `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	EscalatedAt        *time.Time     `gorm:"type:timestamp;default:null" json:"escalated_at,omitempty"`
	MeetingID          *uint          `json:"meeting_id,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Payments    []Payment    `gorm:"foreignKey:ServiceRequestID" json:"payments,omitempty"`
	Documents   []Document   `gorm:"foreignKey:ServiceRequestID" json:"documents,omitempty"`
	Transitions []RequestTransition `gorm:"foreignKey:ServiceRequestID" json:"transitions,omitempty"`
}

// IsTerminal reports whether no further transition may leave this status.
func (r *ServiceRequest) IsTerminal() bool {
	switch r.Status {
	case RequestStatusCompleted, RequestStatusCancelled, RequestStatusRejected:
		return true
	}
	return false
}

// IsAssignedCA reports whether the given CA profile id holds the engagement.
func (r *ServiceRequest) IsAssignedCA(caID uint) bool {
	return r.CAID != nil && *r.CAID == caID
}

// ValidStage reports whether the given work stage annotation is known.
func ValidStage(stage string) bool {
	switch stage {
	case StageDocumentsRequested, StageDocumentsReceived, StageReviewInProgress, StageFiled:
		return true
	}
	return false
}
