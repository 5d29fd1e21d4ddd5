package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
}

// AccountantRepository defines the interface for CA profile operations
type AccountantRepository interface {
	Create(ca *models.CharteredAccountant) error
	GetByID(id uint) (*models.CharteredAccountant, error)
	GetByUserID(userID uint) (*models.CharteredAccountant, error)
	Update(ca *models.CharteredAccountant) error
	IncrementCompletedFilings(id uint) error
}

// ServiceRequestRepository defines the interface for request persistence.
// Transition is the only path that changes the status column: it applies a
// conditional UPDATE (WHERE status = from) and appends the audit entry in one
// transaction, returning false when the guard did not match.
type ServiceRequestRepository interface {
	Create(req *models.ServiceRequest) error
	GetByID(id uint) (*models.ServiceRequest, error)
	Update(req *models.ServiceRequest) error
	Transition(id uint, fromStatus string, updates map[string]interface{}, entry *models.RequestTransition) (bool, error)
	ListByUser(userID uint, offset, limit int) ([]models.ServiceRequest, error)
	ListByCA(caID uint, offset, limit int) ([]models.ServiceRequest, error)
	ListTransitions(requestID uint) ([]models.RequestTransition, error)
}

// PaymentRepository defines the interface for payment-ledger persistence.
// CreateIfSlotFree is the only path that opens a new obligation: it inserts
// unless the (service_request_id, type) live slot is taken, in which case it
// returns the occupying row with created=false.
type PaymentRepository interface {
	Create(p *models.Payment) error
	CreateIfSlotFree(p *models.Payment) (bool, *models.Payment, error)
	GetByID(id uint) (*models.Payment, error)
	GetByGatewayOrderID(orderID string) (*models.Payment, error)
	FindLiveByRequestAndType(requestID uint, paymentType string) (*models.Payment, error)
	HasCompleted(requestID uint, paymentType string) (bool, error)
	Update(p *models.Payment) error
	Delete(id uint) error
	ListByRequest(requestID uint) ([]models.Payment, error)
	CreateWebhookEventIfNotExists(event *models.GatewayWebhookEvent) (bool, *models.GatewayWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

// CouponRepository defines the interface for coupon lookup and redemption
type CouponRepository interface {
	GetByCode(code string) (*models.Coupon, error)
	RecordUsage(usage *models.CouponUsage) (bool, error)
}

// DocumentRepository defines the interface for document metadata operations
type DocumentRepository interface {
	Create(d *models.Document) error
	GetByID(id uint) (*models.Document, error)
	ListByRequest(requestID uint) ([]models.Document, error)
	Update(d *models.Document) error
	IncrementDownloadCount(id uint) error
}

// MeetingRepository defines the interface for meeting persistence
type MeetingRepository interface {
	Create(m *models.Meeting) error
	GetByID(id uint) (*models.Meeting, error)
	GetActiveByRequest(requestID uint) (*models.Meeting, error)
	Update(m *models.Meeting) error
}

// NotificationRepository defines the interface for in-app notifications
type NotificationRepository interface {
	Create(n *models.Notification) error
	ListByRecipient(recipientID uint, recipientKind string, offset, limit int) ([]models.Notification, error)
	CountUnread(recipientID uint, recipientKind string) (int64, error)
	MarkRead(id, recipientID uint, recipientKind string) error
}

// Repositories holds all repository instances
type Repositories struct {
	User           UserRepository
	Accountant     AccountantRepository
	ServiceRequest ServiceRequestRepository
	Payment        PaymentRepository
	Coupon         CouponRepository
	Document       DocumentRepository
	Meeting        MeetingRepository
	Notification   NotificationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		Accountant:     NewAccountantRepository(db),
		ServiceRequest: NewServiceRequestRepository(db),
		Payment:        NewPaymentRepository(db),
		Coupon:         NewCouponRepository(db),
		Document:       NewDocumentRepository(db),
		Meeting:        NewMeetingRepository(db),
		Notification:   NewNotificationRepository(db),
	}
}
