package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// meetingRepository implements the MeetingRepository interface
type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository instance
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(m *models.Meeting) error {
	return r.db.Create(m).Error
}

func (r *meetingRepository) GetByID(id uint) (*models.Meeting, error) {
	var m models.Meeting
	err := r.db.First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetActiveByRequest returns the single non-cancelled meeting of a request,
// or gorm.ErrRecordNotFound.
func (r *meetingRepository) GetActiveByRequest(requestID uint) (*models.Meeting, error) {
	var m models.Meeting
	err := r.db.Where("service_request_id = ? AND status <> ?", requestID, models.MeetingStatusCancelled).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *meetingRepository) Update(m *models.Meeting) error {
	return r.db.Save(m).Error
}
