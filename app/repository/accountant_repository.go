package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// accountantRepository implements the AccountantRepository interface
type accountantRepository struct {
	db *gorm.DB
}

// NewAccountantRepository creates a new CA profile repository instance
func NewAccountantRepository(db *gorm.DB) AccountantRepository {
	return &accountantRepository{db: db}
}

func (r *accountantRepository) Create(ca *models.CharteredAccountant) error {
	return r.db.Create(ca).Error
}

func (r *accountantRepository) GetByID(id uint) (*models.CharteredAccountant, error) {
	var ca models.CharteredAccountant
	err := r.db.Preload("User").First(&ca, id).Error
	if err != nil {
		return nil, err
	}
	return &ca, nil
}

func (r *accountantRepository) GetByUserID(userID uint) (*models.CharteredAccountant, error) {
	var ca models.CharteredAccountant
	err := r.db.Where("user_id = ?", userID).First(&ca).Error
	if err != nil {
		return nil, err
	}
	return &ca, nil
}

func (r *accountantRepository) Update(ca *models.CharteredAccountant) error {
	return r.db.Save(ca).Error
}

// IncrementCompletedFilings bumps the filings counter atomically in SQL so
// concurrent completions never lose an increment.
func (r *accountantRepository) IncrementCompletedFilings(id uint) error {
	return r.db.Model(&models.CharteredAccountant{}).
		Where("id = ?", id).
		UpdateColumn("completed_filings", gorm.Expr("completed_filings + 1")).Error
}
