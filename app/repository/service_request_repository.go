package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// serviceRequestRepository implements the ServiceRequestRepository interface
type serviceRequestRepository struct {
	db *gorm.DB
}

// NewServiceRequestRepository creates a new service request repository instance
func NewServiceRequestRepository(db *gorm.DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

func (r *serviceRequestRepository) Create(req *models.ServiceRequest) error {
	return r.db.Create(req).Error
}

func (r *serviceRequestRepository) GetByID(id uint) (*models.ServiceRequest, error) {
	var req models.ServiceRequest
	err := r.db.Preload("User").Preload("CA").First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *serviceRequestRepository) Update(req *models.ServiceRequest) error {
	return r.db.Save(req).Error
}

// Transition applies a guarded status change. The UPDATE carries
// "status = fromStatus" in its WHERE clause, so of two concurrent callers
// only one can win; the loser sees ok=false and must re-read. The audit
// entry is written in the same transaction as the status flip.
func (r *serviceRequestRepository) Transition(id uint, fromStatus string, updates map[string]interface{}, entry *models.RequestTransition) (bool, error) {
	ok := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ServiceRequest{}).
			Where("id = ? AND status = ?", id, fromStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		ok = true
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return ok, err
}

func (r *serviceRequestRepository) ListByUser(userID uint, offset, limit int) ([]models.ServiceRequest, error) {
	var reqs []models.ServiceRequest
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *serviceRequestRepository) ListByCA(caID uint, offset, limit int) ([]models.ServiceRequest, error) {
	var reqs []models.ServiceRequest
	err := r.db.Where("ca_id = ? OR requested_ca_id = ?", caID, caID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

func (r *serviceRequestRepository) ListTransitions(requestID uint) ([]models.RequestTransition, error) {
	var entries []models.RequestTransition
	err := r.db.Where("service_request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
