package repository

import (
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

// CreateIfSlotFree inserts a payment unless the (request, type) live slot is
// already occupied. The unique index over the generated live_slot column
// turns the insert into insert-or-ignore, so two instances racing through
// the find-miss both land here and exactly one row survives; the loser gets
// the winner's row back.
func (r *paymentRepository) CreateIfSlotFree(p *models.Payment) (bool, *models.Payment, error) {
	tx := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if tx.Error != nil {
		return false, nil, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, p, nil
	}
	existing, err := r.FindLiveByRequestAndType(p.ServiceRequestID, p.Type)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetByGatewayOrderID(orderID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("gateway_order_id = ?", orderID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindLiveByRequestAndType returns the payment currently holding the
// (request, type) slot, i.e. the one in pending or completed state. The
// ledger consults this first so repeat initiate calls reuse one record; the
// unique live_slot index closes the remaining race between the find and the
// insert.
func (r *paymentRepository) FindLiveByRequestAndType(requestID uint, paymentType string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.Where("service_request_id = ? AND type = ? AND status IN ?",
		requestID, paymentType, []string{models.PaymentStatusPending, models.PaymentStatusCompleted}).
		Order("id ASC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) HasCompleted(requestID uint, paymentType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("service_request_id = ? AND type = ? AND status = ?",
			requestID, paymentType, models.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *paymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// Delete removes a payment record. Only used for pending records that were
// never communicated to the gateway.
func (r *paymentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Payment{}, id).Error
}

func (r *paymentRepository) ListByRequest(requestID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("service_request_id = ?", requestID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

// CreateWebhookEventIfNotExists inserts a webhook event unless one with the
// same (provider, provider_event_id) already exists. Returns created=false
// for redeliveries.
func (r *paymentRepository) CreateWebhookEventIfNotExists(event *models.GatewayWebhookEvent) (bool, *models.GatewayWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.GatewayWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *paymentRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.GatewayWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
