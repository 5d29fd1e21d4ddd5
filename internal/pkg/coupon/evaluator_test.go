package coupon

import (
	"testing"
	"time"

	"github.com/caconnect/CAConnect/app/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeCouponRepo struct {
	coupons map[string]*models.Coupon
	usages  map[uint]bool
}

func newFakeCouponRepo(coupons ...*models.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{coupons: make(map[string]*models.Coupon), usages: make(map[uint]bool)}
	for _, c := range coupons {
		r.coupons[c.Code] = c
	}
	return r
}

func (r *fakeCouponRepo) GetByCode(code string) (*models.Coupon, error) {
	if c, ok := r.coupons[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCouponRepo) RecordUsage(usage *models.CouponUsage) (bool, error) {
	if r.usages[usage.PaymentID] {
		return false, nil
	}
	r.usages[usage.PaymentID] = true
	return true, nil
}

func past() *time.Time {
	t := time.Now().Add(-24 * time.Hour)
	return &t
}

func future() *time.Time {
	t := time.Now().Add(24 * time.Hour)
	return &t
}

func TestEvaluatePercentCoupon(t *testing.T) {
	svc := NewService(newFakeCouponRepo(&models.Coupon{
		ID:            1,
		Code:          "SAVE10",
		DiscountType:  models.DiscountTypePercent,
		DiscountValue: 10,
		Active:        true,
	}))

	res := svc.Evaluate("SAVE10", 7, 1178.82, "itr_filing")
	assert.True(t, res.Valid)
	assert.InDelta(t, 117.88, res.DiscountAmount, 0.001)
	assert.InDelta(t, 1060.94, res.FinalAmount, 0.001)
}

func TestEvaluateFlatCouponWithCap(t *testing.T) {
	svc := NewService(newFakeCouponRepo(&models.Coupon{
		ID:            2,
		Code:          "FLAT500",
		DiscountType:  models.DiscountTypeFlat,
		DiscountValue: 500,
		MaxDiscount:   200,
		Active:        true,
	}))

	res := svc.Evaluate("FLAT500", 7, 1000, "")
	assert.True(t, res.Valid)
	assert.InDelta(t, 200, res.DiscountAmount, 0.001)
	assert.InDelta(t, 800, res.FinalAmount, 0.001)
}

func TestEvaluateRejections(t *testing.T) {
	repo := newFakeCouponRepo(
		&models.Coupon{ID: 1, Code: "INACTIVE", DiscountType: models.DiscountTypeFlat, DiscountValue: 100, Active: false},
		&models.Coupon{ID: 2, Code: "EXPIRED", DiscountType: models.DiscountTypeFlat, DiscountValue: 100, Active: true, ValidUntil: past()},
		&models.Coupon{ID: 3, Code: "NOTYET", DiscountType: models.DiscountTypeFlat, DiscountValue: 100, Active: true, ValidFrom: future()},
		&models.Coupon{ID: 4, Code: "USEDUP", DiscountType: models.DiscountTypeFlat, DiscountValue: 100, Active: true, UsageLimit: 5, UsedCount: 5},
		&models.Coupon{ID: 5, Code: "BIGONLY", DiscountType: models.DiscountTypeFlat, DiscountValue: 100, Active: true, MinAmount: 2000},
		&models.Coupon{ID: 6, Code: "GSTONLY", DiscountType: models.DiscountTypeFlat, DiscountValue: 100, Active: true, ServiceType: "gst_filing"},
	)
	svc := NewService(repo)

	for _, code := range []string{"MISSING", "INACTIVE", "EXPIRED", "NOTYET", "USEDUP", "BIGONLY", "GSTONLY"} {
		res := svc.Evaluate(code, 7, 1000, "itr_filing")
		assert.False(t, res.Valid, "code %s should be rejected", code)
		assert.NotEmpty(t, res.Message)
	}
}

func TestRecordUsageOncePerPayment(t *testing.T) {
	svc := NewService(newFakeCouponRepo(&models.Coupon{ID: 1, Code: "SAVE10", Active: true}))

	created, err := svc.RecordUsage(1, 7, 55)
	assert.NoError(t, err)
	assert.True(t, created)

	created, err = svc.RecordUsage(1, 7, 55)
	assert.NoError(t, err)
	assert.False(t, created, "webhook redelivery does not double count")
}
