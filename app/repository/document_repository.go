package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// documentRepository implements the DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(d *models.Document) error {
	return r.db.Create(d).Error
}

func (r *documentRepository) GetByID(id uint) (*models.Document, error) {
	var d models.Document
	err := r.db.First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByRequest returns all non-deleted documents of a request. Soft-deleted
// rows stay in the table but never leave this layer.
func (r *documentRepository) ListByRequest(requestID uint) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.Where("service_request_id = ? AND status <> ?", requestID, models.DocumentStatusDeleted).
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) Update(d *models.Document) error {
	return r.db.Save(d).Error
}

func (r *documentRepository) IncrementDownloadCount(id uint) error {
	return r.db.Model(&models.Document{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}
