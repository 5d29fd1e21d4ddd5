package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CA_VERIFICATION_PENDING  = "pending"
	CA_VERIFICATION_VERIFIED = "verified"
	CA_VERIFICATION_REJECTED = "rejected"
)

// DefaultServicePrice is used when a CA has not configured a price yet.
const DefaultServicePrice = 2500.00

// DefaultCommissionPercent is the platform cut applied to the full service
// price of a filing.
const DefaultCommissionPercent = 8.0

// CharteredAccountant is the professional profile attached to a user with
// role "ca". Service price and commission feed the payment ledger.
type CharteredAccountant struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;uniqueIndex" json:"user_id"`
	User               User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MembershipNumber   string         `gorm:"type:varchar(50);uniqueIndex" json:"membership_number" validate:"required"`
	Specialization     string         `gorm:"type:varchar(150)" json:"specialization"`
	ExperienceYears    int            `gorm:"default:0" json:"experience_years"`
	ServicePrice       float64        `gorm:"type:decimal(10,2);default:0" json:"service_price"`
	CommissionPercent  float64        `gorm:"type:decimal(5,2);default:8" json:"commission_percent"`
	CompletedFilings   int            `gorm:"default:0" json:"completed_filings"`
	Rating             float64        `gorm:"type:decimal(3,2);default:0" json:"rating"`
	VerificationStatus string         `gorm:"type:varchar(20);default:'pending'" json:"verification_status"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// EffectiveServicePrice falls back to the platform default when the CA has no
// configured price.
func (ca *CharteredAccountant) EffectiveServicePrice() float64 {
	if ca.ServicePrice > 0 {
		return ca.ServicePrice
	}
	return DefaultServicePrice
}

// EffectiveCommissionPercent falls back to the platform default.
func (ca *CharteredAccountant) EffectiveCommissionPercent() float64 {
	if ca.CommissionPercent > 0 {
		return ca.CommissionPercent
	}
	return DefaultCommissionPercent
}
