package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentTypeBookingFee      = "booking_fee"
	PaymentTypeServiceFee      = "service_fee"
	PaymentTypeCancellationFee = "cancellation_fee"
	PaymentTypeRefund          = "refund"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

const DefaultCurrency = "INR"

// Payment is one financial transaction tied to exactly one service request.
// Status moves pending -> completed|failed and never backwards; a refund is a
// new row of type "refund" linked via RefundOfID, the original row is never
// mutated. For a given (service_request_id, type) at most one row may be
// pending or completed at a time; the unique index over the generated
// live_slot column enforces this at the database, so concurrent initiate
// calls across instances cannot both insert.
type Payment struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	PayerID          uint           `gorm:"not null;index" json:"payer_id"`
	Payer            User           `gorm:"foreignKey:PayerID" json:"payer,omitempty"`
	PayeeID          *uint          `gorm:"index" json:"payee_id,omitempty"`
	ServiceRequestID uint           `gorm:"not null;index:idx_payments_request_type,priority:1;uniqueIndex:ux_payments_live_slot,priority:1" json:"service_request_id"`
	Type             string         `gorm:"type:varchar(20);not null;index:idx_payments_request_type,priority:2" json:"type"`
	Status           string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount           float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	OriginalAmount   float64        `gorm:"type:decimal(10,2);default:0" json:"original_amount"`
	DiscountAmount   float64        `gorm:"type:decimal(10,2);default:0" json:"discount_amount"`
	ServicePrice     float64        `gorm:"type:decimal(10,2);default:0" json:"service_price"`
	CouponID         *uint          `json:"coupon_id,omitempty"`
	Currency         string         `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	GatewayOrderID   string         `gorm:"type:varchar(100);default:null;uniqueIndex" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string         `gorm:"type:varchar(100);default:null" json:"gateway_payment_id,omitempty"`
	PaymentMethod    string         `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	CommissionPercent float64       `gorm:"type:decimal(5,2);default:0" json:"commission_percent"`
	CommissionAmount float64        `gorm:"type:decimal(10,2);default:0" json:"commission_amount"`
	NetAmount        float64        `gorm:"type:decimal(10,2);default:0" json:"net_amount"`
	IsEscrow         bool           `gorm:"default:false" json:"is_escrow"`
	FailureReason    string         `gorm:"type:text" json:"failure_reason,omitempty"`
	RetryCount       int            `gorm:"default:0" json:"retry_count"`
	RefundOfID       *uint          `json:"refund_of_id,omitempty"`
	// LiveSlot mirrors Type while this row holds its request's live slot (a
	// pending or completed booking/service fee) and is NULL otherwise, so the
	// unique index only ever sees one live obligation per (request, type).
	LiveSlot *string `gorm:"->;type:varchar(20) GENERATED ALWAYS AS (if(deleted_at is null and status in ('pending','completed') and type in ('booking_fee','service_fee'), type, null)) STORED;uniqueIndex:ux_payments_live_slot,priority:2" json:"-"`
	PaidAt           *time.Time     `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsLive reports whether this payment still holds the (request, type) slot.
func (p *Payment) IsLive() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusCompleted
}
