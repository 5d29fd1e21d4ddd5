package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DiscountTypePercent = "percent"
	DiscountTypeFlat    = "flat"
)

type Coupon struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Code          string         `gorm:"type:varchar(50);not null;uniqueIndex" json:"code" validate:"required"`
	DiscountType  string         `gorm:"type:varchar(10);not null;default:'percent'" json:"discount_type" validate:"oneof=percent flat"`
	DiscountValue float64        `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	MaxDiscount   float64        `gorm:"type:decimal(10,2);default:0" json:"max_discount"`
	MinAmount     float64        `gorm:"type:decimal(10,2);default:0" json:"min_amount"`
	ServiceType   string         `gorm:"type:varchar(100);default:null" json:"service_type,omitempty"`
	ValidFrom     *time.Time     `gorm:"type:timestamp;default:null" json:"valid_from,omitempty"`
	ValidUntil    *time.Time     `gorm:"type:timestamp;default:null" json:"valid_until,omitempty"`
	UsageLimit    int            `gorm:"default:0" json:"usage_limit"`
	UsedCount     int            `gorm:"default:0" json:"used_count"`
	Active        bool           `gorm:"default:true" json:"active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// CouponUsage records one redemption of a coupon against a payment.
type CouponUsage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CouponID  uint      `gorm:"not null;index" json:"coupon_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PaymentID uint      `gorm:"not null;uniqueIndex" json:"payment_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
