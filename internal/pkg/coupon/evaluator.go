package coupon

import (
	"errors"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/money"
	"gorm.io/gorm"
)

// Result is the outcome of evaluating a coupon code against an amount.
type Result struct {
	Valid          bool    `json:"valid"`
	Message        string  `json:"message,omitempty"`
	CouponID       uint    `json:"coupon_id,omitempty"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

// Evaluator is the coupon port consumed by the payment ledger.
type Evaluator interface {
	Evaluate(code string, userID uint, amount float64, serviceType string) Result
	RecordUsage(couponID, userID, paymentID uint) (bool, error)
}

// Service evaluates coupon codes against the coupons table.
type Service struct {
	repo repository.CouponRepository
}

func NewService(repo repository.CouponRepository) *Service {
	return &Service{repo: repo}
}

func invalid(message string) Result {
	return Result{Valid: false, Message: message}
}

func (s *Service) Evaluate(code string, userID uint, amount float64, serviceType string) Result {
	if code == "" {
		return invalid("no coupon code supplied")
	}

	c, err := s.repo.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("coupon code not found")
		}
		return invalid("coupon lookup failed")
	}

	now := time.Now()
	switch {
	case !c.Active:
		return invalid("coupon is no longer active")
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return invalid("coupon is not valid yet")
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return invalid("coupon has expired")
	case c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit:
		return invalid("coupon usage limit reached")
	case c.MinAmount > 0 && amount < c.MinAmount:
		return invalid("amount below coupon minimum")
	case c.ServiceType != "" && serviceType != "" && c.ServiceType != serviceType:
		return invalid("coupon does not apply to this service")
	}

	discount := c.DiscountValue
	if c.DiscountType == models.DiscountTypePercent {
		discount = amount * c.DiscountValue / 100
	}
	if c.MaxDiscount > 0 && discount > c.MaxDiscount {
		discount = c.MaxDiscount
	}

	applied, final := money.ApplyDiscount(amount, discount)
	return Result{
		Valid:          true,
		CouponID:       c.ID,
		DiscountAmount: applied,
		FinalAmount:    final,
	}
}

// RecordUsage registers a redemption once per payment. Safe to call again on
// webhook redelivery.
func (s *Service) RecordUsage(couponID, userID, paymentID uint) (bool, error) {
	return s.repo.RecordUsage(&models.CouponUsage{
		CouponID:  couponID,
		UserID:    userID,
		PaymentID: paymentID,
	})
}
