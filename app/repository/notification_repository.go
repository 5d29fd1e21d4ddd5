package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// notificationRepository implements the NotificationRepository interface
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *notificationRepository) ListByRecipient(recipientID uint, recipientKind string, offset, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("recipient_id = ? AND recipient_kind = ?", recipientID, recipientKind).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(recipientID uint, recipientKind string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND recipient_kind = ? AND is_read = ?", recipientID, recipientKind, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips is_read for a notification owned by the given recipient.
// The ownership check lives in the WHERE clause.
func (r *notificationRepository) MarkRead(id, recipientID uint, recipientKind string) error {
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND recipient_kind = ?", id, recipientID, recipientKind).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
