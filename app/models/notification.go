package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification event kinds emitted by the request lifecycle and the ledger.
const (
	NotificationRequestBooked    = "request_booked"
	NotificationRequestAccepted  = "request_accepted"
	NotificationRequestRejected  = "request_rejected"
	NotificationRequestCancelled = "request_cancelled"
	NotificationStageUpdated     = "stage_updated"
	NotificationRequestCompleted = "request_completed"
	NotificationRequestEscalated = "request_escalated"
	NotificationPaymentCompleted = "payment_completed"
	NotificationPaymentFailed    = "payment_failed"
	NotificationRefundIssued     = "refund_issued"
	NotificationMeetingScheduled = "meeting_scheduled"
)

type Notification struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RecipientID   uint           `gorm:"not null;index:idx_notifications_recipient,priority:1" json:"recipient_id"`
	RecipientKind string         `gorm:"type:varchar(10);not null;index:idx_notifications_recipient,priority:2" json:"recipient_kind"`
	Kind          string         `gorm:"type:varchar(50);not null" json:"kind"`
	Content       string         `gorm:"type:text" json:"content"`
	PayloadJSON   string         `gorm:"type:text" json:"payload_json,omitempty"`
	ReferenceID   uint           `json:"reference_id"`
	IsRead        bool           `gorm:"default:false" json:"is_read"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead flags the notification as seen.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}
