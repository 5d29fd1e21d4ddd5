package repository

import (
	"github.com/caconnect/CAConnect/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// couponRepository implements the CouponRepository interface
type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository creates a new coupon repository instance
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetByCode(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.Where("code = ?", code).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// RecordUsage registers one redemption. The unique index on payment_id makes
// the call idempotent: a redelivered webhook confirming the same payment
// inserts nothing and increments nothing.
func (r *couponRepository) RecordUsage(usage *models.CouponUsage) (bool, error) {
	recorded := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}},
			DoNothing: true,
		}).Create(usage)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		recorded = true
		return tx.Model(&models.Coupon{}).
			Where("id = ?", usage.CouponID).
			UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
	})
	return recorded, err
}
